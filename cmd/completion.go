package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_pbecipher() {
    local cur prev words cword
    _init_completion || return

    local commands="init encrypt decrypt algorithms set get rm ls status seal unseal reveal diff passwd keyring compact completion help"
    local params="--salt --algorithm --iterations"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    if [[ "$prev" == "--algorithm" ]]; then
        COMPREPLY=($(compgen -W "$(pbecipher algorithms 2>/dev/null | awk '{print $1}')" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        init)
            COMPREPLY=($(compgen -W "$params --keyring" -- "$cur"))
            ;;
        encrypt|decrypt)
            COMPREPLY=($(compgen -W "$params" -- "$cur"))
            ;;
        seal|unseal)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "$params --dry-run" -- "$cur"))
            else
                _filedir
            fi
            ;;
        reveal)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "$params -o" -- "$cur"))
            else
                _filedir
            fi
            ;;
        diff)
            _filedir
            ;;
        get|rm)
            local names
            names=$(pbecipher ls 2>/dev/null | awk '{print $1}')
            COMPREPLY=($(compgen -W "$names" -- "$cur"))
            ;;
        passwd)
            COMPREPLY=($(compgen -W "--algorithm --iterations" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _pbecipher pbecipher
`

const zshCompletion = `#compdef pbecipher

_pbecipher() {
    local -a commands params
    commands=(
        'init:Create a .pbecipher store'
        'encrypt:Encrypt text to Base64'
        'decrypt:Decrypt Base64 ciphertext'
        'algorithms:List supported algorithms'
        'set:Store a named secret'
        'get:Print a named secret'
        'rm:Remove named secrets'
        'ls:List secret names'
        'status:Show store status'
        'seal:Encrypt DEC(...) values in files'
        'unseal:Turn ENC(...) values back into DEC(...)'
        'reveal:Print a file with ENC(...) values decrypted'
        'diff:Compare a sealed file with plaintext'
        'passwd:Change the store password'
        'keyring:Manage password in OS keyring'
        'compact:Compact the store'
        'completion:Generate shell completions'
        'help:Show help for a command'
    )
    params=(
        '--salt[8 byte salt]:salt:'
        '--algorithm[PBE algorithm]:algorithm:_pbecipher_algorithms'
        '--iterations[KDF iteration count]:count:'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'pbecipher commands' commands
            ;;
        args)
            case "${words[2]}" in
                init)
                    _arguments $params '--keyring[Save password to OS keyring]'
                    ;;
                encrypt|decrypt)
                    _arguments $params
                    ;;
                seal|unseal)
                    _arguments $params '--dry-run[Show diff without writing]' '*:file:_files'
                    ;;
                reveal)
                    _arguments $params '-o[Output file]:file:_files' ':file:_files'
                    ;;
                diff)
                    _arguments ':sealed file:_files' ':plain file:_files'
                    ;;
                get|rm)
                    _arguments '*:secret:_pbecipher_secrets'
                    ;;
                passwd)
                    _arguments '--algorithm[PBE algorithm]:algorithm:_pbecipher_algorithms' '--iterations[KDF iteration count]:count:'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'pbecipher commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_pbecipher_algorithms() {
    local -a algorithms
    algorithms=(${(f)"$(pbecipher algorithms 2>/dev/null | awk '{print $1}')"})
    _describe -t algorithms 'algorithms' algorithms
}

_pbecipher_secrets() {
    local -a names
    names=(${(f)"$(pbecipher ls 2>/dev/null | awk '{print $1}')"})
    _describe -t secrets 'secrets' names
}

_pbecipher "$@"
`

const fishCompletion = `# pbecipher fish completions

set -l commands init encrypt decrypt algorithms set get rm ls status seal unseal reveal diff passwd keyring compact completion help

complete -c pbecipher -f

# Commands
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a .pbecipher store'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a encrypt -d 'Encrypt text'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a decrypt -d 'Decrypt ciphertext'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a algorithms -d 'List algorithms'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a set -d 'Store a secret'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a get -d 'Print a secret'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove secrets'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List secrets'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show store status'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a seal -d 'Seal DEC values in files'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a unseal -d 'Unseal ENC values in files'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a reveal -d 'Print decrypted file'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare sealed with plaintext'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change store password'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact store'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'
complete -c pbecipher -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'

# parameter flags
complete -c pbecipher -n "__fish_seen_subcommand_from init encrypt decrypt seal unseal reveal" -l salt -r -d '8 byte salt'
complete -c pbecipher -n "__fish_seen_subcommand_from init encrypt decrypt seal unseal reveal passwd" -l algorithm -r -a "(pbecipher algorithms 2>/dev/null | awk '{print \$1}')" -d 'PBE algorithm'
complete -c pbecipher -n "__fish_seen_subcommand_from init encrypt decrypt seal unseal reveal passwd" -l iterations -r -d 'Iteration count'
complete -c pbecipher -n "__fish_seen_subcommand_from init" -l keyring -d 'Save password to keyring'
complete -c pbecipher -n "__fish_seen_subcommand_from seal unseal" -l dry-run -d 'Show diff only'
complete -c pbecipher -n "__fish_seen_subcommand_from reveal" -s o -r -F -d 'Output file'
complete -c pbecipher -n "__fish_seen_subcommand_from seal unseal reveal diff" -F

# secret names
complete -c pbecipher -n "__fish_seen_subcommand_from get rm" -a "(pbecipher ls 2>/dev/null | awk '{print \$1}')"

# keyring subcommands
complete -c pbecipher -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c pbecipher -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c pbecipher -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
