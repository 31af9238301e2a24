package cmd

import (
	"errors"
	"math"
	"testing"

	"github.com/illarion/pbecipher/internal/config"
)

func TestStoreParamsIterationRange(t *testing.T) {
	tests := []struct {
		name       string
		iterations int
		want       uint32
		wantErr    bool
	}{
		{"zero keeps default", 0, 0, false},
		{"one", 1, 1, false},
		{"typical", 1000, 1000, false},
		{"max uint32", math.MaxUint32, math.MaxUint32, false},
		{"negative", -1, 0, true},
		{"wraps past uint32", math.MaxUint32 + 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storeParams(Params{Salt: "abcdefgh", Iterations: tt.iterations})
			if tt.wantErr {
				if !errors.Is(err, errIterationsRange) {
					t.Errorf("storeParams(%d): expected errIterationsRange, got %v", tt.iterations, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("storeParams(%d): unexpected error: %v", tt.iterations, err)
			}
			if got.Iterations != tt.want {
				t.Errorf("storeParams(%d) = %d iterations, want %d", tt.iterations, got.Iterations, tt.want)
			}
			if got.Salt != "abcdefgh" {
				t.Errorf("Salt not carried over: %q", got.Salt)
			}
		})
	}
}

func TestEnvironmentIterationsAreRangeChecked(t *testing.T) {
	app := &App{cfg: &config.Config{Algorithm: "PBEWithMD5AndDES", Iterations: -1}}

	params, _ := app.explicitParams(Params{})
	if params.Iterations != -1 {
		t.Fatalf("PBE_ITERATIONS should be merged, got %d", params.Iterations)
	}
	if _, err := storeParams(params); !errors.Is(err, errIterationsRange) {
		t.Errorf("Negative PBE_ITERATIONS should be rejected, got %v", err)
	}

	// Command line values take precedence over the environment
	params, _ = app.explicitParams(Params{Iterations: 20})
	sp, err := storeParams(params)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sp.Iterations != 20 {
		t.Errorf("Expected 20 iterations, got %d", sp.Iterations)
	}
}
