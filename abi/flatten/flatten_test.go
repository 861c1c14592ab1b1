package flatten

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chainkit/abitool/abi/loader"
)

const commonSchema = `
package: "chain.common.v1"
abi-version: 1
package-version: "1.0.0"
types:
  Amount:
    struct:
      fields:
        - name: lamports
          type: u64
`

const rootSchema = `
package: "chain.token.v1"
abi-version: 1
package-version: "1.0.0"
imports:
  - path: "common.yaml"
types:
  Transfer:
    struct:
      fields:
        - name: amount
          type: Amount
`

func load(t *testing.T) (*loader.Result, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "common.yaml"), []byte(commonSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	root := filepath.Join(dir, "root.yaml")
	if err := os.WriteFile(root, []byte(rootSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	ld := loader.New(nil, nil, nil, nil)
	res, err := ld.Load(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	return res, root
}

func TestFlattenInlinesImportedTypes(t *testing.T) {
	res, _ := load(t)

	flat, err := Flatten(res.Root, res.All, res.Edges)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat.Imports) != 0 {
		t.Errorf("flattened package still declares %d import(s)", len(flat.Imports))
	}
	if flat.Types.Len() != 2 {
		t.Fatalf("flattened type count: got %d, want 2 (Transfer, Amount)", flat.Types.Len())
	}
	if _, ok := flat.Types.GetOK("Amount"); !ok {
		t.Error("flattened package missing imported type Amount")
	}
	if flat.Ident.Name != "chain.token.v1" {
		t.Errorf("flattened package identity: got %q, want root's own", flat.Ident.Name)
	}
}

func TestFlattenIsIdempotent(t *testing.T) {
	res, _ := load(t)

	first, err := Flatten(res.Root, res.All, res.Edges)
	if err != nil {
		t.Fatal(err)
	}
	firstDoc, err := loader.EncodeDocument(first)
	if err != nil {
		t.Fatal(err)
	}

	again, err := Flatten(res.Root, res.All, res.Edges)
	if err != nil {
		t.Fatal(err)
	}
	againDoc, err := loader.EncodeDocument(again)
	if err != nil {
		t.Fatal(err)
	}

	if d := Diff(string(firstDoc), string(againDoc)); d != "" {
		t.Errorf("flatten is not idempotent across repeated runs:\n%s", d)
	}
}

func TestFlattenOfAlreadyFlatPackageIsANoop(t *testing.T) {
	res, _ := load(t)
	flat, err := Flatten(res.Root, res.All, res.Edges)
	if err != nil {
		t.Fatal(err)
	}

	reflat, err := Flatten(flat, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reflat.Types.Len() != flat.Types.Len() {
		t.Errorf("re-flattening a flat package changed type count: got %d, want %d", reflat.Types.Len(), flat.Types.Len())
	}
}
