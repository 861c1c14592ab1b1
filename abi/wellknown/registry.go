// Package wellknown implements per-type-name post-processing of decoded
// values: a registry of handlers that enrich a ReflectedValue's decoded
// fields with a human-readable projection (an address string alongside a
// raw pubkey, an ISO-8601 string alongside a timestamp's seconds/nanos).
package wellknown

// Result is what a Handler returns after inspecting a decoded value.
type Result struct {
	// Matched is false when the handler declined (the decoded shape did
	// not match its expected field set); the registry then leaves the
	// value untouched.
	Matched bool

	// Enrichment holds additional named fields to attach alongside the
	// decoded value (e.g. {"address": "ta..."}).
	Enrichment map[string]any

	// Replace, when non-nil, replaces the decoded value outright rather
	// than just enriching it.
	Replace any
}

// none is the zero Result: no match.
var none = Result{}

// Handler processes one well-known type name. Implementations are pure
// functions of the decoded field set.
type Handler interface {
	TypeName() string
	Process(fields map[string]FieldValue) Result
}

// FieldValue is the minimal view of a decoded struct field a Handler
// needs: its raw bytes (for fixed-size byte arrays) or its scalar value.
type FieldValue struct {
	Bytes   []byte
	Int     int64
	Uint    uint64
	Float   float64
	IsFloat bool
	IsBytes bool
}

// Registry maps a type name to the Handler that enriches it.
type Registry struct {
	handlers map[string]Handler
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// WithDefaults builds a Registry pre-populated with every built-in handler.
func WithDefaults() *Registry {
	r := New()
	r.registerDefaults()
	return r
}

// Register adds (or replaces) a Handler.
func (r *Registry) Register(h Handler) {
	r.handlers[h.TypeName()] = h
}

// RegisteredTypes returns the type names with a registered handler.
func (r *Registry) RegisteredTypes() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

// Process runs the handler registered for typeName, if any, against fields.
func (r *Registry) Process(typeName string, fields map[string]FieldValue) Result {
	h, ok := r.handlers[typeName]
	if !ok {
		return none
	}
	return h.Process(fields)
}

func (r *Registry) registerDefaults() {
	r.Register(pubkeyHandler{})
	r.Register(signatureHandler{})
	r.Register(hashHandler{})

	r.Register(timestampHandler{})
	r.Register(durationHandler{})
	r.Register(dateHandler{})
	r.Register(dateTimeHandler{})
	r.Register(timeOfDayHandler{})
	r.Register(dayOfWeekHandler{})
	r.Register(monthHandler{})
	r.Register(calendarPeriodHandler{})

	r.Register(decimalHandler{})
	r.Register(fixedPointHandler{})
	r.Register(fractionHandler{})

	r.Register(colorHandler{})
	r.Register(latLngHandler{})
	r.Register(moneyHandler{})
	r.Register(quaternionHandler{})
	r.Register(intervalHandler{})

	r.Register(instructionDataHandler{})
}

func field(fields map[string]FieldValue, name string) (FieldValue, bool) {
	v, ok := fields[name]
	return v, ok
}

func fieldInt(fields map[string]FieldValue, name string) (int64, bool) {
	v, ok := field(fields, name)
	if !ok || v.IsBytes {
		return 0, false
	}
	if v.IsFloat {
		return int64(v.Float), true
	}
	if v.Uint != 0 {
		return int64(v.Uint), true
	}
	return v.Int, true
}

func fieldIntDefault(fields map[string]FieldValue, name string, def int64) int64 {
	v, ok := fieldInt(fields, name)
	if !ok {
		return def
	}
	return v
}

func fieldFloat(fields map[string]FieldValue, name string) (float64, bool) {
	v, ok := field(fields, name)
	if !ok {
		return 0, false
	}
	if v.IsFloat {
		return v.Float, true
	}
	return float64(v.Int), true
}

func fieldFloatDefault(fields map[string]FieldValue, name string, def float64) float64 {
	v, ok := fieldFloat(fields, name)
	if !ok {
		return def
	}
	return v
}

func fieldBytes(fields map[string]FieldValue, name string) ([]byte, bool) {
	v, ok := field(fields, name)
	if !ok || !v.IsBytes {
		return nil, false
	}
	return v.Bytes, true
}
