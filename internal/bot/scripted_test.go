package bot

import (
	"context"
	"testing"
)

func TestScriptedGenerate(t *testing.T) {
	client := NewScripted()
	defer func() { _ = client.Close() }()

	tests := []struct {
		name string
		in   string
	}{
		{"greeting", "hello there"},
		{"question", "what time is it?"},
		{"statement", "I like Go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := client.Generate(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if reply == "" {
				t.Error("Expected a non-empty reply")
			}
		})
	}
}

func TestScriptedHonorsCancelledContext(t *testing.T) {
	client := NewScripted()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Generate(ctx, "hello"); err == nil {
		t.Error("Expected error from cancelled context")
	}
}
