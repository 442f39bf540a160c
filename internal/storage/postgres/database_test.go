package postgres

import "testing"

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT id FROM transactions WHERE id = $1", "SELECT id FROM transactions WHERE id = $1"},
		{"SELECT * FROM t WHERE name = 'João' AND x = 42", "SELECT * FROM t WHERE name = '?' AND x = ?"},
		{"UPDATE t SET s = 'it''s'", "UPDATE t SET s = '?'"},
		{"SELECT amount FROM t WHERE amount > 10.50", "SELECT amount FROM t WHERE amount > ?"},
		{"SELECT col1 FROM t2", "SELECT col1 FROM t2"},
		{"SELECT\n\t\tid\n\tFROM t", "SELECT id FROM t"},
	}
	for _, tt := range tests {
		if got := sanitizeQuery(tt.in); got != tt.want {
			t.Errorf("sanitizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractSQLVerb(t *testing.T) {
	tests := []struct{ in, want string }{
		{"select 1", "SELECT"},
		{"\n\t\tINSERT INTO t", "INSERT"},
		{"", ""},
		{"DELETE FROM transactions", "DELETE"},
	}
	for _, tt := range tests {
		if got := extractSQLVerb(tt.in); got != tt.want {
			t.Errorf("extractSQLVerb(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
