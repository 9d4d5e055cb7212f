package commands

import (
	"fmt"
	"strings"

	"github.com/marmos91/remotefs/cmd/rfs/cmdutil"
	"github.com/marmos91/remotefs/internal/cli/credentials"
	"github.com/marmos91/remotefs/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var (
	loginUser     string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login [host]",
	Short: "Save credentials for a host",
	Long: `Save the user and password used for URLs of a host that carry no
credentials of their own. Without arguments, lists the hosts with saved
credentials.

Credentials are stored in $XDG_CONFIG_HOME/remotefs/credentials.json with
mode 0600.

Examples:
  # Prompt for user and password
  rfs login fileserver

  # Non-interactive
  rfs login fileserver -u alice -p secret

  # List hosts
  rfs login`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <host>",
	Short: "Forget saved credentials for a host",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUser, "user", "u", "", "User name")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
}

// HostEntry is one saved credential as printed by "rfs login".
type HostEntry struct {
	Host    string `json:"host" yaml:"host"`
	User    string `json:"user" yaml:"user"`
	SavedAt string `json:"saved_at" yaml:"saved_at"`
}

// HostList renders saved credentials as a table.
type HostList []HostEntry

// Headers implements output.TableRenderer.
func (l HostList) Headers() []string {
	return []string{"HOST", "USER", "SAVED"}
}

// Rows implements output.TableRenderer.
func (l HostList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, h := range l {
		rows = append(rows, []string{h.Host, h.User, h.SavedAt})
	}
	return rows
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if len(args) == 0 {
		return listHosts(cmd, store)
	}
	host := strings.ToLower(args[0])

	user := loginUser
	if user == "" {
		user, err = prompt.InputWithValidation("User", func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("user is required")
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	password := loginPassword
	if password == "" && !cmd.Flags().Changed("password") {
		password, err = prompt.Password(fmt.Sprintf("Password for %s@%s", user, host))
		if err != nil {
			return err
		}
	}

	if err := store.Set(host, user, password); err != nil {
		return err
	}
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(),
		HostEntry{Host: host, User: user},
		fmt.Sprintf("Saved credentials for %s@%s", user, host))
}

func listHosts(cmd *cobra.Command, store *credentials.Store) error {
	hosts := HostList{}
	for _, host := range store.Hosts() {
		c, err := store.Get(host)
		if err != nil {
			continue
		}
		hosts = append(hosts, HostEntry{
			Host:    host,
			User:    c.User,
			SavedAt: c.SavedAt.Format("2006-01-02 15:04"),
		})
	}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), hosts, len(hosts) == 0,
		"No saved credentials. Use 'rfs login <host>' to add some.", hosts)
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}
	host := strings.ToLower(args[0])
	if err := store.Delete(host); err != nil {
		return err
	}
	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(),
		HostEntry{Host: host}, fmt.Sprintf("Removed credentials for %s", host))
}
