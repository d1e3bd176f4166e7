package host

import (
	"context"
	"net"
	"net/rpc"
	"reflect"
	"testing"
	"time"
)

type mockUpdater struct {
	meta    Metadata
	gotEnv  Environment
	info    *PluginInformation
	update  *Update
	queries int
}

func (m *mockUpdater) QueryInfo(_ context.Context, env Environment, result *PluginInformation, _ string, args InfoArgs) *PluginInformation {
	m.gotEnv = env
	m.queries++
	if args.Slug != m.meta.Slug {
		return result
	}
	return m.info
}

func (m *mockUpdater) CheckUpdate(_ context.Context, env Environment, tr *Transient) *Transient {
	m.gotEnv = env
	if tr == nil || len(tr.Checked) == 0 || m.update == nil {
		return tr
	}
	if tr.Response == nil {
		tr.Response = make(map[string]*Update)
	}
	tr.Response[m.meta.FilePath] = m.update
	return tr
}

func (m *mockUpdater) GetMetadata() Metadata {
	return m.meta
}

func newMockUpdater() *mockUpdater {
	return &mockUpdater{
		meta: Metadata{Slug: "demo", FilePath: "demo/demo.php", Version: "1.0.0"},
		info: &PluginInformation{
			Name:         "Demo",
			Slug:         "demo",
			Version:      "1.1.0",
			DownloadLink: "https://example.com/demo.zip",
			Trunk:        "https://example.com/demo.zip",
			Sections:     map[string]string{"changelog": "<p>fixes</p>"},
		},
		update: &Update{
			Slug:       "demo",
			Plugin:     "demo/demo.php",
			NewVersion: "1.1.0",
			Package:    "https://example.com/demo.zip",
		},
	}
}

// dialPipe serves impl over an in-memory connection and returns a client.
func dialPipe(t *testing.T, impl Updater) *UpdaterRPCClient {
	t.Helper()

	p := &UpdaterRPC{Impl: impl}
	srv, err := p.Server(nil)
	if err != nil {
		t.Fatalf("Server() error = %v", err)
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Plugin", srv); err != nil {
		t.Fatalf("RegisterName() error = %v", err)
	}

	serverConn, clientConn := net.Pipe()
	go rpcServer.ServeConn(serverConn)

	rpcClient := rpc.NewClient(clientConn)
	t.Cleanup(func() { _ = rpcClient.Close() })

	raw, err := p.Client(nil, rpcClient)
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	client, ok := raw.(*UpdaterRPCClient)
	if !ok {
		t.Fatalf("Client() returned %T", raw)
	}
	return client
}

func TestUpdaterRPC(t *testing.T) {
	mock := newMockUpdater()

	t.Run("Server", func(t *testing.T) {
		server, err := (&UpdaterRPC{Impl: mock}).Server(nil)
		if err != nil {
			t.Fatalf("Server() error = %v", err)
		}
		rpcServer, ok := server.(*UpdaterRPCServer)
		if !ok {
			t.Fatal("Server() returned wrong type")
		}
		if rpcServer.Impl != mock {
			t.Fatal("Server() impl not set correctly")
		}
	})

	client := dialPipe(t, mock)
	env := Environment{HostVersion: "6.4.2", RuntimeVersion: "8.2.0"}

	t.Run("GetMetadata", func(t *testing.T) {
		if got := client.GetMetadata(); got != mock.meta {
			t.Errorf("GetMetadata() = %+v, want %+v", got, mock.meta)
		}
	})

	t.Run("QueryInfo", func(t *testing.T) {
		got := client.QueryInfo(context.Background(), env, nil, ActionPluginInformation, InfoArgs{Slug: "demo"})
		if !reflect.DeepEqual(got, mock.info) {
			t.Errorf("QueryInfo() = %+v, want %+v", got, mock.info)
		}
		if mock.gotEnv != env {
			t.Errorf("server saw env %+v, want %+v", mock.gotEnv, env)
		}
	})

	t.Run("QueryInfo pass-through", func(t *testing.T) {
		in := &PluginInformation{Slug: "other", Version: "3.0.0"}
		got := client.QueryInfo(context.Background(), env, in, ActionPluginInformation, InfoArgs{Slug: "other"})
		if !reflect.DeepEqual(got, in) {
			t.Errorf("QueryInfo() = %+v, want %+v", got, in)
		}
	})

	t.Run("CheckUpdate", func(t *testing.T) {
		tr := &Transient{Checked: map[string]string{"demo/demo.php": "1.0.0"}}
		got := client.CheckUpdate(context.Background(), env, tr)
		if got == nil || len(got.Response) != 1 {
			t.Fatalf("CheckUpdate() = %+v, want one response", got)
		}
		if !reflect.DeepEqual(got.Response["demo/demo.php"], mock.update) {
			t.Errorf("CheckUpdate() update = %+v, want %+v", got.Response["demo/demo.php"], mock.update)
		}
	})
}

func TestUpdaterRPCClientReturnsCallerValues(t *testing.T) {
	env := Environment{HostVersion: "6.4.2", RuntimeVersion: "8.2.0"}

	t.Run("CheckUpdate pass-through", func(t *testing.T) {
		mock := newMockUpdater()
		mock.update = nil
		client := dialPipe(t, mock)

		tr := &Transient{
			LastChecked: time.Now(),
			Checked:     map[string]string{"demo/demo.php": "1.0.0"},
			Response:    map[string]*Update{},
		}
		got := client.CheckUpdate(context.Background(), env, tr)
		if got != tr {
			t.Fatalf("CheckUpdate() = %p, want input %p", got, tr)
		}
		if tr.Response == nil || len(tr.Response) != 0 {
			t.Errorf("Response = %#v, want the original empty map", tr.Response)
		}
	})

	t.Run("CheckUpdate adds into caller transient", func(t *testing.T) {
		mock := newMockUpdater()
		client := dialPipe(t, mock)

		other := &Update{Slug: "other", Plugin: "other/other.php", NewVersion: "2.0"}
		tr := &Transient{
			LastChecked: time.Now(),
			Checked:     map[string]string{"demo/demo.php": "1.0.0", "other/other.php": "1.0"},
			Response:    map[string]*Update{"other/other.php": other},
		}
		got := client.CheckUpdate(context.Background(), env, tr)
		if got != tr {
			t.Fatalf("CheckUpdate() = %p, want input %p", got, tr)
		}
		if tr.Response["other/other.php"] != other {
			t.Errorf("existing response replaced: %+v", tr.Response["other/other.php"])
		}
		if !reflect.DeepEqual(tr.Response["demo/demo.php"], mock.update) {
			t.Errorf("Response[demo/demo.php] = %+v, want %+v", tr.Response["demo/demo.php"], mock.update)
		}
	})

	t.Run("CheckUpdate nil transient", func(t *testing.T) {
		client := dialPipe(t, newMockUpdater())
		if got := client.CheckUpdate(context.Background(), env, nil); got != nil {
			t.Errorf("CheckUpdate(nil) = %+v, want nil", got)
		}
	})

	t.Run("QueryInfo pass-through", func(t *testing.T) {
		client := dialPipe(t, newMockUpdater())

		in := &PluginInformation{Slug: "other", Sections: map[string]string{}}
		got := client.QueryInfo(context.Background(), env, in, ActionPluginInformation, InfoArgs{Slug: "other"})
		if got != in {
			t.Fatalf("QueryInfo() = %p, want input %p", got, in)
		}
		if in.Sections == nil {
			t.Error("Sections lost its empty map")
		}
	})
}

func TestSameInfo(t *testing.T) {
	tests := []struct {
		name string
		a, b *PluginInformation
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and zero", nil, &PluginInformation{}, true},
		{"empty and nil maps", &PluginInformation{Slug: "a", Banners: map[string]string{}}, &PluginInformation{Slug: "a"}, true},
		{"different slug", &PluginInformation{Slug: "a"}, &PluginInformation{Slug: "b"}, false},
		{"nil and populated", nil, &PluginInformation{Version: "1.0"}, false},
	}

	for _, tt := range tests {
		if got := sameInfo(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: sameInfo() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUpdaterRPCClientFailsOpen(t *testing.T) {
	client := dialPipe(t, newMockUpdater())
	_ = client.client.Close()

	in := &PluginInformation{Slug: "demo"}
	if got := client.QueryInfo(context.Background(), Environment{}, in, ActionPluginInformation, InfoArgs{Slug: "demo"}); got != in {
		t.Errorf("QueryInfo() on closed client = %p, want input %p", got, in)
	}

	tr := &Transient{Checked: map[string]string{"demo/demo.php": "1.0.0"}}
	if got := client.CheckUpdate(context.Background(), Environment{}, tr); got != tr {
		t.Errorf("CheckUpdate() on closed client = %p, want input %p", got, tr)
	}
	if len(tr.Response) != 0 {
		t.Errorf("transient mutated on failure: %+v", tr.Response)
	}

	if got := client.GetMetadata(); got != (Metadata{}) {
		t.Errorf("GetMetadata() on closed client = %+v, want zero", got)
	}
}

func TestAttach(t *testing.T) {
	mock := newMockUpdater()
	env := Environment{HostVersion: "6.4.2", RuntimeVersion: "8.2.0", Admin: true}
	r := NewRegistry(env)

	Attach(r, mock)

	got := r.QueryInfo(context.Background(), ActionPluginInformation, InfoArgs{Slug: "demo"})
	if got != mock.info {
		t.Errorf("QueryInfo() = %+v, want mock info", got)
	}
	if mock.gotEnv != env {
		t.Errorf("updater saw env %+v, want %+v", mock.gotEnv, env)
	}

	tr := r.CheckUpdate(context.Background(), &Transient{Checked: map[string]string{"demo/demo.php": "1.0.0"}})
	if tr.Response["demo/demo.php"] != mock.update {
		t.Errorf("CheckUpdate() response = %+v, want mock update", tr.Response)
	}
}

func TestPluginMap(t *testing.T) {
	m := PluginMap(nil)
	if _, ok := m[PluginName].(*UpdaterRPC); !ok {
		t.Fatalf("PluginMap()[%q] = %T, want *UpdaterRPC", PluginName, m[PluginName])
	}
}
