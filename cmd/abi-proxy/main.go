// Command abi-proxy is a thin HTTP companion to abictl: it exposes
// /reflect and /analyze over a fixed, already-loaded schema, for callers
// that would rather hit an endpoint than shell out to the CLI on every
// request (e.g. a wallet backend checking instruction buffers inline).
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"chainkit/abitool/abi"
	"chainkit/abitool/abi/logging"
	"chainkit/abitool/internal/abicli"
)

func main() {
	var (
		schemaPath = flag.String("schema", "", "root schema file to load and serve")
		addr       = flag.String("addr", ":8080", "listen address")
		includeDir = flag.String("include", "", "comma-separated list of additional import search directories")
	)
	flag.Parse()

	if *schemaPath == "" {
		fmt.Fprintln(os.Stderr, "abi-proxy: -schema is required")
		os.Exit(2)
	}

	var includeDirs []string
	if *includeDir != "" {
		includeDirs = strings.Split(*includeDir, ",")
	}

	log := logging.NewLogger(os.Stderr, logging.LevelInfo)
	pipe, err := abicli.Load(context.Background(), *schemaPath, includeDirs, false, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "abi-proxy: load %s: %v\n", *schemaPath, err)
		os.Exit(1)
	}
	reflector := abi.NewReflector(pipe.Root.Types, pipe.Resolved, pipe.Index, pipe.Root.Metadata, nil)

	srv := &server{pipe: pipe, reflector: reflector, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestUUID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/analyze", srv.handleAnalyze)
	r.Post("/reflect", srv.handleReflect)

	log.Infof("abi-proxy serving %s on %s", pipe.Root.Ident.Name, *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		fmt.Fprintf(os.Stderr, "abi-proxy: %v\n", err)
		os.Exit(1)
	}
}

// requestUUID stamps every request with a google/uuid request ID (in
// addition to chi's own short RequestID), echoed back in the response so
// a caller can correlate a reflect call with server-side logs.
func requestUUID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Uuid", id)
		next.ServeHTTP(w, req)
	})
}

type server struct {
	pipe      *abicli.Pipeline
	reflector *abi.Reflector
	log       logging.Logger
}

type analyzeResponse struct {
	Package string   `json:"package"`
	Types   []string `json:"types"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analyzeResponse{
		Package: s.pipe.Root.Ident.Name,
		Types:   s.pipe.Order,
	})
}

type reflectRequest struct {
	Type string `json:"type"`
	Data string `json:"data"` // hex-encoded buffer
}

func (s *server) handleReflect(w http.ResponseWriter, r *http.Request) {
	var req reflectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return
	}

	buf, err := hex.DecodeString(req.Data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "data must be hex-encoded: " + err.Error()})
		return
	}

	rv, err := s.reflector.Reflect(req.Type, buf)
	if err != nil {
		s.log.Warnf("reflect %s failed: %v", req.Type, err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"type": req.Type, "value": jsonValue(rv, false)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// jsonValue renders a ReflectedValue as a plain JSON-able tree. Mirrors
// cmd/abictl's reflect verb; kept as a small local copy since the two
// binaries don't otherwise share a package.
func jsonValue(rv abi.ReflectedValue, offsets bool) any {
	v := rv.Value
	if v.HasReplaced {
		return v.ReplacedBy
	}

	switch v.Kind {
	case abi.ValuePrimitive:
		if v.IsFloat {
			return v.PrimitiveFloat
		}
		return v.Primitive
	case abi.ValueStruct:
		fields := make(map[string]any, len(v.Order))
		for _, name := range v.Order {
			fields[name] = jsonValue(v.Fields[name], offsets)
		}
		if len(v.Enrichment) > 0 {
			fields["$enrichment"] = v.Enrichment
		}
		return fields
	case abi.ValueUnion:
		if v.Variant != nil {
			return map[string]any{"variant": v.VariantName, "value": jsonValue(*v.Variant, offsets)}
		}
		return map[string]any{"raw": hex.EncodeToString(v.Raw)}
	case abi.ValueEnum:
		return map[string]any{"variant": v.VariantName, "tag": v.TagValue, "value": jsonValue(*v.Variant, offsets)}
	case abi.ValueSizeDiscriminatedUnion:
		return map[string]any{"variant": v.VariantName, "value": jsonValue(*v.Variant, offsets)}
	case abi.ValueArray:
		elems := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = jsonValue(e, offsets)
		}
		return elems
	default:
		return nil
	}
}
