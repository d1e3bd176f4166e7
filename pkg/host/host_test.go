package host

import (
	"context"
	"testing"
)

func TestRegistryChainsInfoHandlers(t *testing.T) {
	r := NewRegistry(Environment{HostVersion: "6.4"})

	r.OnQueryInfo(func(_ context.Context, result *PluginInformation, action string, args InfoArgs) *PluginInformation {
		if result != nil {
			t.Errorf("first handler got result %+v, want nil", result)
		}
		if args.Slug != "other" {
			return result
		}
		return &PluginInformation{Slug: "other"}
	})
	r.OnQueryInfo(func(_ context.Context, result *PluginInformation, action string, args InfoArgs) *PluginInformation {
		if action != ActionPluginInformation || args.Slug != "demo" {
			return result
		}
		return &PluginInformation{Slug: "demo", Version: "2.0.0"}
	})

	got := r.QueryInfo(context.Background(), ActionPluginInformation, InfoArgs{Slug: "demo"})
	if got == nil || got.Version != "2.0.0" {
		t.Fatalf("QueryInfo(demo) = %+v, want version 2.0.0", got)
	}

	got = r.QueryInfo(context.Background(), ActionPluginInformation, InfoArgs{Slug: "other"})
	if got == nil || got.Slug != "other" {
		t.Fatalf("QueryInfo(other) = %+v, want slug other", got)
	}

	got = r.QueryInfo(context.Background(), "query_plugins", InfoArgs{Slug: "demo"})
	if got != nil {
		t.Fatalf("QueryInfo(query_plugins) = %+v, want nil", got)
	}
}

func TestRegistryChainsUpdateHandlers(t *testing.T) {
	r := NewRegistry(Environment{})

	for _, name := range []string{"a/a.php", "b/b.php"} {
		r.OnCheckUpdate(func(_ context.Context, tr *Transient) *Transient {
			if tr.Response == nil {
				tr.Response = make(map[string]*Update)
			}
			tr.Response[name] = &Update{Plugin: name}
			return tr
		})
	}

	info, update := r.Handlers()
	if info != 0 || update != 2 {
		t.Fatalf("Handlers() = %d, %d, want 0, 2", info, update)
	}

	tr := r.CheckUpdate(context.Background(), &Transient{Checked: map[string]string{"a/a.php": "1.0"}})
	if len(tr.Response) != 2 {
		t.Fatalf("CheckUpdate() response has %d entries, want 2", len(tr.Response))
	}
}

func TestRegistryEnvironment(t *testing.T) {
	env := Environment{HostVersion: "6.4.2", RuntimeVersion: "8.2.0", Admin: true}
	if got := NewRegistry(env).Environment(); got != env {
		t.Errorf("Environment() = %+v, want %+v", got, env)
	}
}
