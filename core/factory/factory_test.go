package factory

import "testing"

type sample struct{ Path string }

type sampleConf struct {
	Path string `json:"path"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{Path: c.Path}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"path": "datasets/week.json"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.Path != "datasets/week.json" {
		t.Fatalf("decoded path = %q", got.Path)
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	reg := NewRegistry[*sample]()
	if _, err := reg.Create(ModuleConfig{Type: "missing"}); err == nil {
		t.Fatal("expected error for unknown module type")
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	reg := NewRegistry[*sample]()
	f := func(map[string]any) (*sample, error) { return &sample{}, nil }
	if err := reg.Register("s", f); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register("s", f); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
