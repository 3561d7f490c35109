package sentiment

import "testing"

func TestConfigWithDefaults(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		envPositive  string
		envNegative  string
		wantPositive string
		wantNegative string
	}{
		{
			name:         "built-in defaults",
			cfg:          Config{},
			wantPositive: DefaultPositiveWordlist,
			wantNegative: DefaultNegativeWordlist,
		},
		{
			name:         "environment overrides defaults",
			cfg:          Config{},
			envPositive:  "/env/pos.txt",
			envNegative:  "/env/neg.txt",
			wantPositive: "/env/pos.txt",
			wantNegative: "/env/neg.txt",
		},
		{
			name:         "explicit overrides win over environment",
			cfg:          Config{PositiveWordlist: "/explicit/pos.txt", NegativeWordlist: "/explicit/neg.txt"},
			envPositive:  "/env/pos.txt",
			envNegative:  "/env/neg.txt",
			wantPositive: "/explicit/pos.txt",
			wantNegative: "/explicit/neg.txt",
		},
		{
			name:         "mixed resolution per path",
			cfg:          Config{PositiveWordlist: "/explicit/pos.txt"},
			envNegative:  "/env/neg.txt",
			wantPositive: "/explicit/pos.txt",
			wantNegative: "/env/neg.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// t.Setenv forbids t.Parallel; resolution reads the process env.
			t.Setenv(EnvPositiveWordlist, tt.envPositive)
			t.Setenv(EnvNegativeWordlist, tt.envNegative)

			got := tt.cfg.WithDefaults()

			if got.PositiveWordlist != tt.wantPositive {
				t.Errorf("PositiveWordlist = %q, want %q", got.PositiveWordlist, tt.wantPositive)
			}
			if got.NegativeWordlist != tt.wantNegative {
				t.Errorf("NegativeWordlist = %q, want %q", got.NegativeWordlist, tt.wantNegative)
			}
		})
	}
}
