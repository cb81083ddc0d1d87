package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// zshCompletionScript completes commands, flags, and the names defined in
// the user's configuration. Names are fetched through the hidden
// --get-*-names flags so the script needs no parser of its own.
const zshCompletionScript = `#compdef httpcraft
compdef _httpcraft httpcraft

# Completion for httpcraft. Dynamic names come from the hidden
# --get-*-names flags, which read the configuration and print one name
# per line; a --config flag already on the line is passed through so the
# helpers see the same file the command will use.

_httpcraft_names() {
  local tag=$1; shift
  local -a names
  names=(${(f)"$(httpcraft $cfg "$@" 2>/dev/null)"})
  (( $#names )) && _describe -t "$tag" "$tag" names
}

_httpcraft_profiles() {
  _httpcraft_names profile --get-profile-names
}

_httpcraft() {
  local curcontext=$curcontext state line
  typeset -A opt_args
  local -a cfg

  local i
  for ((i = 2; i < CURRENT; i++)); do
    if [[ ${words[i]} == --config && -n ${words[i+1]} ]]; then
      cfg=(--config ${words[i+1]})
    fi
  done

  _arguments -C \
    '--config[configuration file]:file:_files' \
    '*--var[variable override key=value]:variable:' \
    '*--profile[profile to apply]:profile:_httpcraft_profiles' \
    '--no-default-profile[skip the default profile]' \
    '--verbose[print request and response diagnostics]' \
    '--dry-run[resolve the request without sending it]' \
    '--exit-on-http-error[exit 1 when the status matches]:patterns:' \
    '--json[structured JSON output]' \
    '--chain-output[chain output mode]:mode:(default full)' \
    '--namespace[cache namespace]:namespace:' \
    '1: :->first' \
    '2: :->second' \
    '3: :->third' \
    '4: :->fourth'

  case $state in
  first)
    local -a commands
    commands=(
      'chain:execute a request chain'
      'list:list configured apis, endpoints, profiles, variables, or chains'
      'describe:show the full definition of one item'
      'cache:inspect and manage the plugin cache'
      'validate:validate the configuration file'
      'completion:print the shell completion script'
      'version:print the version'
    )
    _describe -t commands 'command' commands
    _httpcraft_names api --get-api-names
    ;;
  second)
    case $line[1] in
    chain)
      _httpcraft_names chain --get-chain-names
      ;;
    list)
      _values 'section' apis endpoints profiles variables chains
      ;;
    describe)
      _values 'kind' api endpoint profile chain
      ;;
    cache)
      _values 'operation' list get delete clear stats
      ;;
    completion)
      _values 'shell' zsh
      ;;
    validate | version)
      ;;
    *)
      _httpcraft_names endpoint --get-endpoint-names $line[1]
      ;;
    esac
    ;;
  third)
    case "$line[1] $line[2]" in
    'describe api' | 'describe endpoint' | 'list endpoints')
      _httpcraft_names api --get-api-names
      ;;
    'describe profile')
      _httpcraft_names profile --get-profile-names
      ;;
    'describe chain')
      _httpcraft_names chain --get-chain-names
      ;;
    esac
    ;;
  fourth)
    if [[ "$line[1] $line[2]" == 'describe endpoint' ]]; then
      _httpcraft_names endpoint --get-endpoint-names $line[3]
    fi
    ;;
  esac
}

if [ "$funcstack[1]" = "_httpcraft" ]; then
  _httpcraft
fi
`

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Print the shell completion script",
	Long: `Print the completion script for the given shell. Only zsh is
supported. Load it with:

  source <(httpcraft completion zsh)

or install it as a file named _httpcraft in a directory on $fpath.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"zsh"},
	RunE:      runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	fmt.Fprint(cmd.OutOrStdout(), zshCompletionScript)
	return nil
}
