package db

import "testing"

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data/app.db", "data/app.db?_fk=1&_txlock=immediate&_busy_timeout=5000"},
		{"data/app.db?_busy_timeout=100", "data/app.db?_busy_timeout=100&_fk=1&_txlock=immediate"},
		{"file.db?_txlock=deferred", "file.db?_txlock=deferred&_fk=1&_busy_timeout=5000"},
	}
	for _, tc := range tests {
		if got := sqliteDSN(tc.in); got != tc.want {
			t.Fatalf("sqliteDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
