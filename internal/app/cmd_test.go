package app

import (
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なしはserve", []string{}, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"grant-admin", []string{"grant-admin", "a@example.com"}, CommandGrantAdmin},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"未知のコマンドはserve", []string{"unknown"}, CommandServe},
		{"余分な引数は無視", []string{"worker", "--flag", "value"}, CommandWorker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestCommandArgs(t *testing.T) {
	if got := commandArgs([]string{"grant-admin"}); got != nil {
		t.Errorf("commandArgs = %v, want nil", got)
	}
	got := commandArgs([]string{"grant-admin", "a@example.com"})
	if len(got) != 1 || got[0] != "a@example.com" {
		t.Errorf("commandArgs = %v", got)
	}
}
