package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/pbecipher/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global := flag.NewFlagSet("pbecipher", flag.ExitOnError)
	envFile := global.String("env-file", "", "Load PBE_* variables from a dotenv file")
	global.Usage = printUsage
	if err := global.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	args := global.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	// Commands that need no configuration
	switch args[0] {
	case "help", "-h", "--help":
		if len(args) < 2 {
			printUsage()
			return
		}
		printCommandHelp(args[1])
		return
	case "algorithms":
		cmd.Algorithms()
		return
	case "completion":
		runCompletion(args[1:])
		return
	}

	app := cmd.Load(*envFile)

	switch args[0] {
	case "init":
		runInit(app, args[1:])
	case "encrypt":
		runEncrypt(ctx, app, args[1:])
	case "decrypt":
		runDecrypt(ctx, app, args[1:])
	case "set":
		runSet(ctx, app, args[1:])
	case "get":
		runGet(ctx, app, args[1:])
	case "rm":
		runRm(ctx, app, args[1:])
	case "ls":
		runLs(ctx, app, args[1:])
	case "status":
		runStatus(ctx, app, args[1:])
	case "seal":
		runSeal(ctx, app, args[1:])
	case "unseal":
		runUnseal(ctx, app, args[1:])
	case "reveal":
		runReveal(ctx, app, args[1:])
	case "diff":
		runDiff(ctx, app, args[1:])
	case "passwd":
		runPasswd(ctx, app, args[1:])
	case "keyring":
		runKeyring(app, args[1:])
	case "compact":
		runCompact(app, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

// paramFlags registers --salt, --algorithm and --iterations on fs
func paramFlags(fs *flag.FlagSet) *cmd.Params {
	p := &cmd.Params{}
	fs.StringVar(&p.Salt, "salt", "", "Salt, exactly 8 bytes in UTF-8 (default $PBE_SALT)")
	fs.StringVar(&p.Algorithm, "algorithm", "", "PBE algorithm name (default $PBE_ALGORITHM)")
	fs.IntVar(&p.Iterations, "iterations", 0, "KDF iteration count (default $PBE_ITERATIONS)")
	return p
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func requireArgs(fs *flag.FlagSet, min int, usage string) {
	if fs.NArg() < min {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
}

func runInit(app *cmd.App, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	p := paramFlags(fs)
	saveToKeyring := fs.Bool("keyring", false, "Save the password to the OS keyring")
	parse(fs, args)

	app.Init(*p, *saveToKeyring)
}

func runEncrypt(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	p := paramFlags(fs)
	parse(fs, args)

	app.Encrypt(ctx, *p, fs.Args())
}

func runDecrypt(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	p := paramFlags(fs)
	parse(fs, args)

	app.Decrypt(ctx, *p, fs.Args())
}

func runSet(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	parse(fs, args)
	requireArgs(fs, 1, "pbecipher set <name> [value]")

	app.Set(ctx, fs.Arg(0), fs.Args()[1:])
}

func runGet(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	parse(fs, args)
	requireArgs(fs, 1, "pbecipher get <name>")

	app.Get(ctx, fs.Arg(0))
}

func runRm(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	parse(fs, args)

	app.Remove(ctx, fs.Args())
}

func runLs(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	parse(fs, args)

	app.Ls(ctx)
}

func runStatus(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parse(fs, args)

	app.Status(ctx)
}

func runSeal(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	p := paramFlags(fs)
	dryRun := fs.Bool("dry-run", false, "Show the diff without writing files")
	parse(fs, args)

	app.Seal(ctx, *p, fs.Args(), *dryRun)
}

func runUnseal(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("unseal", flag.ExitOnError)
	p := paramFlags(fs)
	dryRun := fs.Bool("dry-run", false, "Show the diff without writing files")
	parse(fs, args)

	app.Unseal(ctx, *p, fs.Args(), *dryRun)
}

func runReveal(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("reveal", flag.ExitOnError)
	p := paramFlags(fs)
	out := fs.String("o", "", "Write the plaintext to this file instead of stdout")
	parse(fs, args)
	requireArgs(fs, 1, "pbecipher reveal [-o out] <file>")

	app.Reveal(ctx, *p, fs.Arg(0), *out)
}

func runDiff(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	p := paramFlags(fs)
	parse(fs, args)
	requireArgs(fs, 1, "pbecipher diff <sealed-file> [plain-file]")

	app.Diff(ctx, *p, fs.Arg(0), fs.Arg(1))
}

func runPasswd(ctx context.Context, app *cmd.App, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	p := &cmd.Params{}
	fs.StringVar(&p.Algorithm, "algorithm", "", "Switch to another PBE algorithm")
	fs.IntVar(&p.Iterations, "iterations", 0, "Change the KDF iteration count")
	parse(fs, args)

	app.Passwd(ctx, *p)
}

func runKeyring(app *cmd.App, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pbecipher keyring <save|delete|status>")
		os.Exit(1)
	}

	switch args[0] {
	case "save":
		app.KeyringSave()
	case "delete":
		app.KeyringDelete()
	case "status":
		app.KeyringStatus()
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: pbecipher keyring <save|delete|status>")
		os.Exit(1)
	}
}

func runCompact(app *cmd.App, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parse(fs, args)

	app.Compact()
}

func runCompletion(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pbecipher completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("pbecipher - password-based encryption for configuration values")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pbecipher [--env-file FILE] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a .pbecipher store in current directory")
	fmt.Println("  encrypt     Encrypt text to Base64")
	fmt.Println("  decrypt     Decrypt Base64 ciphertext")
	fmt.Println("  algorithms  List supported algorithms")
	fmt.Println("  set         Store a named secret")
	fmt.Println("  get         Print a named secret")
	fmt.Println("  rm          Remove named secrets")
	fmt.Println("  ls          List secret names")
	fmt.Println("  status      Show store status")
	fmt.Println("  seal        Encrypt DEC(...) values in config files")
	fmt.Println("  unseal      Turn ENC(...) values back into DEC(...)")
	fmt.Println("  reveal      Print a config file with ENC(...) values decrypted")
	fmt.Println("  diff        Compare a sealed file with plaintext")
	fmt.Println("  passwd      Change the store password")
	fmt.Println("  keyring     Manage password in OS keyring")
	fmt.Println("  compact     Compact the store to reclaim disk space")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  PBE_SALT, PBE_ALGORITHM, PBE_PASSWORD, PBE_ITERATIONS, PBE_LOG_LEVEL, PBE_STORE")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pbecipher init                          # Create new store")
	fmt.Println("  pbecipher encrypt 'p@ssw0rd'            # Encrypt with store parameters")
	fmt.Println("  pbecipher seal app.properties           # Seal DEC(...) values")
	fmt.Println("  pbecipher reveal app.properties         # Show plaintext")
	fmt.Println()
	fmt.Println("Use 'pbecipher help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	const paramHelp = `Parameters (override the store and PBE_* variables):
  --salt S          Salt, exactly 8 bytes in UTF-8
  --algorithm A     PBE algorithm name (see 'pbecipher algorithms')
  --iterations N    KDF iteration count`

	switch command {
	case "init":
		fmt.Println("pbecipher init [--salt S] [--algorithm A] [--iterations N] [--keyring]")
		fmt.Println()
		fmt.Println("Creates a .pbecipher store in the current directory.")
		fmt.Println("Without a salt, 8 random alphanumeric characters are used.")
		fmt.Println("The password is not stored unless --keyring is given.")
		fmt.Println()
		fmt.Println(paramHelp)
		fmt.Println("  --keyring         Save the password to the OS keyring")
	case "encrypt", "decrypt":
		fmt.Printf("pbecipher %s [--salt S] [--algorithm A] [--iterations N] [text]\n", command)
		fmt.Println()
		fmt.Println("Encrypts text to Base64, or decrypts Base64 (optionally wrapped in ENC(...)).")
		fmt.Println("Reads stdin when no text is given.")
		fmt.Println("With a salt from --salt or PBE_SALT the given parameters are used;")
		fmt.Println("otherwise the parameters of the .pbecipher store.")
		fmt.Println()
		fmt.Println(paramHelp)
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  PBE_PASSWORD=secret pbecipher encrypt --salt 12345678 hello")
		fmt.Println("  echo 'ENC(...)' | pbecipher decrypt")
	case "algorithms":
		fmt.Println("pbecipher algorithms")
		fmt.Println()
		fmt.Println("Lists the supported PBE algorithm names. Names are case-insensitive.")
	case "set":
		fmt.Println("pbecipher set <name> [value]")
		fmt.Println()
		fmt.Println("Encrypts value and stores it under name.")
		fmt.Println("Without a value it is read from the terminal without echo, or from stdin.")
	case "get":
		fmt.Println("pbecipher get <name>")
		fmt.Println()
		fmt.Println("Prints the decrypted value of a secret.")
	case "rm":
		fmt.Println("pbecipher rm <name> [name...]")
		fmt.Println()
		fmt.Println("Removes secrets from the store and compacts it.")
	case "ls":
		fmt.Println("pbecipher ls")
		fmt.Println()
		fmt.Println("Lists secret names and modification times. Does not require a password.")
	case "status":
		fmt.Println("pbecipher status")
		fmt.Println()
		fmt.Println("Shows store parameters, secret count, keyring and git state.")
		fmt.Println("Does not require a password.")
	case "seal", "unseal":
		fmt.Printf("pbecipher %s [--dry-run] [params] <file> [file...]\n", command)
		fmt.Println()
		if command == "seal" {
			fmt.Println("Replaces every DEC(value) in the files with ENC(ciphertext).")
		} else {
			fmt.Println("Replaces every ENC(ciphertext) in the files with DEC(value) for editing.")
		}
		fmt.Println("Files must be inside the current directory. Permissions are kept.")
		fmt.Println()
		fmt.Println("  --dry-run         Show the diff without writing files")
		fmt.Println(paramHelp)
	case "reveal":
		fmt.Println("pbecipher reveal [-o out] [params] <file>")
		fmt.Println()
		fmt.Println("Prints the file with every ENC(...) value decrypted.")
		fmt.Println("With -o the plaintext is written to a file with owner-only permissions,")
		fmt.Println("and a warning is shown if git could pick it up.")
	case "diff":
		fmt.Println("pbecipher diff [params] <sealed-file> [plain-file]")
		fmt.Println()
		fmt.Println("Shows a unified diff between the revealed sealed file and plain-file,")
		fmt.Println("or between the sealed file and its revealed form.")
	case "passwd":
		fmt.Println("pbecipher passwd [--algorithm A] [--iterations N]")
		fmt.Println()
		fmt.Println("Re-encrypts every secret under a new password and a fresh salt.")
		fmt.Println("Config files sealed with the old parameters must be unsealed first.")
	case "keyring":
		fmt.Println("pbecipher keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the store password in the OS keyring.")
		fmt.Println("A stored password is used when PBE_PASSWORD is not set.")
	case "compact":
		fmt.Println("pbecipher compact")
		fmt.Println()
		fmt.Println("Compacts the store database. Done automatically after 'rm' and 'passwd'.")
	case "completion":
		fmt.Println("pbecipher completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  eval \"$(pbecipher completion bash)\"   # ~/.bashrc")
		fmt.Println("  eval \"$(pbecipher completion zsh)\"    # ~/.zshrc")
		fmt.Println("  pbecipher completion fish | source    # config.fish")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
