// Command godfs is the DFS client CLI: login/logout session management
// and namespace/data operations against a coordinator.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hrcamilo11/godfs/pkg/client"
	"github.com/hrcamilo11/godfs/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "godfs",
	Short: "godfs client — namespace and file operations against a coordinator",
}

func init() {
	rootCmd.PersistentFlags().String("coordinator", "127.0.0.1:7070", "Coordinator RPC address")
	rootCmd.PersistentFlags().String("user", "", "Username for this operation")
	rootCmd.PersistentFlags().Int64("block-size", types.DefaultBlockSize, "Block size in bytes; must match the coordinator's configured value")

	rootCmd.AddCommand(loginCmd, logoutCmd, mkdirCmd, rmdirCmd, lsCmd, putCmd, getCmd, rmCmd, mvCmd)
}

func newClient(cmd *cobra.Command) *client.Client {
	addr, _ := cmd.Flags().GetString("coordinator")
	blockSize, _ := cmd.Flags().GetInt64("block-size")
	return client.New(addr, blockSize)
}

func requireUser(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Start a session for --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		if err := newClient(cmd).Login(user); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", user)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session for --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		if err := newClient(cmd).Logout(user); err != nil {
			return err
		}
		fmt.Printf("logged out %s\n", user)
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		return newClient(cmd).Mkdir(user, args[0])
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <path>",
	Short: "Remove an empty directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		return newClient(cmd).Rmdir(user, args[0])
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "List a directory's immediate children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		items, err := newClient(cmd).Ls(user, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		for _, it := range items {
			kind := "f"
			if it.IsDir {
				kind = "d"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", kind, it.Size, it.Name)
		}
		return nil
	},
}

var putCmd = &cobra.Command{
	Use:   "put <local-file> <dfs-path>",
	Short: "Upload a local file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		return newClient(cmd).Put(args[0], args[1], user)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <dfs-path> <local-file>",
	Short: "Download a DFS file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		return newClient(cmd).Get(args[0], args[1], user)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <dfs-path>",
	Short: "Remove a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		return newClient(cmd).RemoveFile(user, args[0])
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <src> <dst>",
	Short: "Move or rename a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		final, err := newClient(cmd).Move(user, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(final)
		return nil
	},
}
