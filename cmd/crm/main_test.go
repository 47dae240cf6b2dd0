package main

import (
	"io"
	"net"
	"path/filepath"
	"testing"
)

func TestRunExitCodes(t *testing.T) {
	t.Run("unknown flag", func(t *testing.T) {
		if code := run([]string{"--port", "9000"}, io.Discard); code != 2 {
			t.Errorf("exit code = %d; want 2", code)
		}
	})

	t.Run("invalid driver", func(t *testing.T) {
		t.Setenv("LEADS_DB_DRIVER", "mysql")
		if code := run(nil, io.Discard); code != 1 {
			t.Errorf("exit code = %d; want 1", code)
		}
	})

	t.Run("unopenable store", func(t *testing.T) {
		t.Setenv("LEADS_DB_DRIVER", "sqlite3")
		t.Setenv("LEADS_DB_PATH", filepath.Join(t.TempDir(), "missing", "leads.db"))
		if code := run(nil, io.Discard); code != 1 {
			t.Errorf("exit code = %d; want 1", code)
		}
	})

	t.Run("address in use", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer ln.Close()

		t.Setenv("LEADS_DB_DRIVER", "sqlite3")
		t.Setenv("LEADS_DB_PATH", filepath.Join(t.TempDir(), "leads.db"))
		if code := run([]string{"--addr", ln.Addr().String()}, io.Discard); code != 1 {
			t.Errorf("exit code = %d; want 1", code)
		}
	})
}
