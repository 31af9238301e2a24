package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/illarion/pbecipher/internal/config"
	"github.com/illarion/pbecipher/internal/core"
	"github.com/illarion/pbecipher/internal/crypto"
	"github.com/illarion/pbecipher/internal/keyring"
	"github.com/illarion/pbecipher/internal/storage"
	"github.com/illarion/pbecipher/pkg/pbe"
	"github.com/sirupsen/logrus"
)

// App carries the environment configuration shared by all commands
type App struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// Params are the PBE parameters given on the command line. Empty fields
// fall back to the PBE_* environment.
type Params struct {
	Salt       string
	Algorithm  string
	Iterations int
}

// Load reads the PBE_* environment (and envFile, if set) or exits.
func Load(envFile string) *App {
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	cfg.Log(logger)
	return &App{cfg: cfg, logger: logger}
}

func (a *App) store() *core.Store {
	return core.New(a.cfg.Store, a.logger)
}

// envPassword returns a copy of PBE_PASSWORD, or nil when unset
func (a *App) envPassword() []byte {
	if a.cfg.Password == "" {
		return nil
	}
	return []byte(a.cfg.Password)
}

// storePassword resolves the store passphrase from PBE_PASSWORD, then the
// keyring, then the terminal. A keyring entry that no longer matches is
// reported and the user is prompted instead.
// The caller is responsible for calling crypto.ClearBytes on the result.
func (a *App) storePassword(store *core.Store, prompt string) ([]byte, error) {
	if password := a.envPassword(); password != nil {
		return password, nil
	}

	if storeID, err := store.GetStoreID(); err == nil && storeID != "" {
		if stored, err := keyring.GetPassword(storeID); err == nil {
			password := []byte(stored)
			err := store.VerifyPassword(password)
			if err == nil {
				a.logger.Debug("using password from keyring")
				return password, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(err, core.ErrWrongPassword) {
				return nil, err
			}
			fmt.Fprintln(os.Stderr, "warning: keyring password is stale (run 'pbecipher keyring save')")
		}
	}

	return core.ReadPassword(prompt)
}

// explicitParams merges command line params over the environment. It
// reports false when no salt was given either way.
func (a *App) explicitParams(p Params) (Params, bool) {
	if p.Salt == "" {
		p.Salt = a.cfg.Salt
	}
	if p.Algorithm == "" {
		p.Algorithm = a.cfg.Algorithm
	}
	if p.Iterations == 0 {
		p.Iterations = a.cfg.Iterations
	}
	return p, p.Salt != ""
}

// service builds the cipher service for one-shot and file commands. An
// explicit salt (flag or PBE_SALT) selects explicit parameters; otherwise
// the parameters and password of the store are used.
// The caller should Destroy the service.
func (a *App) service(p Params) (*pbe.Service, error) {
	if params, ok := a.explicitParams(p); ok {
		password := a.envPassword()
		if password == nil {
			var err error
			if password, err = core.ReadPassword("Enter password: "); err != nil {
				return nil, err
			}
		}
		defer crypto.ClearBytes(password)
		return pbe.New(params.Salt, params.Algorithm, string(password), params.Iterations, pbe.WithLogger(a.logger))
	}

	store := a.store()
	if !store.Exists() {
		return nil, errNoParams
	}

	password, err := a.storePassword(store, "Enter password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password)

	return store.Service(password)
}

var errNoParams = errors.New("no salt configured")

var errIterationsRange = errors.New("iterations out of range")

// storeParams converts command line params for the store. Zero iterations
// select the store default (init) or keep the current count (passwd).
func storeParams(p Params) (storage.Params, error) {
	if p.Iterations < 0 || uint64(p.Iterations) > math.MaxUint32 {
		return storage.Params{}, fmt.Errorf("%w: %d (want 1 to %d)", errIterationsRange, p.Iterations, uint32(math.MaxUint32))
	}
	return storage.Params{
		Salt:       p.Salt,
		Algorithm:  p.Algorithm,
		Iterations: uint32(p.Iterations),
	}, nil
}

// readInput returns args joined by spaces, or stdin without its trailing
// newline when args is empty.
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if core.IsTerminal() {
		fmt.Fprint(os.Stderr, "Enter text (Ctrl-D to finish): ")
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// HandleError prints a friendly message for err and exits
func HandleError(err error) {
	var cfgErr *pbe.ConfigurationError
	var cipherErr *pbe.CipherError

	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: pbecipher store not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'pbecipher init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'pbecipher status' to see current state\n")
	case errors.Is(err, core.ErrWrongPassword):
		fmt.Fprintf(os.Stderr, "Error: wrong password\n")
	case errors.Is(err, errNoParams):
		fmt.Fprintf(os.Stderr, "Error: no salt configured\n")
		fmt.Fprintf(os.Stderr, "Pass --salt, set PBE_SALT or run 'pbecipher init'\n")
	case errors.As(err, &cfgErr):
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %s\n", cfgErr)
		if errors.Is(err, pbe.ErrAlgorithmUnavailable) {
			fmt.Fprintf(os.Stderr, "Run 'pbecipher algorithms' to list supported algorithms\n")
		}
	case errors.As(err, &cipherErr):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Check the password, salt, algorithm and iteration count\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
