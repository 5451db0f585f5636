package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xADE/ade-find/client/find"
	"github.com/0xADE/ade-find/internal/indexer"
)

func newRootCmd() *cobra.Command {
	var socket string

	cmd := &cobra.Command{
		Use:   "ade-find",
		Short: "Query the ade-find launcher index",
		Long: `ade-find talks to ade-find-ctld over its Unix socket.

The daemon keeps an in-memory index of applications and user files;
this tool runs ranked searches against it and inspects its state.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&socket, "socket", "", "daemon socket (default $ADE_FIND_SOCK or /tmp/ade-<uid>/findd)")

	connect := func() (*find.Client, error) {
		if socket != "" {
			return find.Dial(socket)
		}
		return find.NewClient()
	}

	cmd.AddCommand(
		newSearchCmd(connect),
		newDebugCmd(connect),
		newSummaryCmd(connect),
		newStatusCmd(connect),
		newReindexCmd(connect),
		newInteractiveCmd(connect),
	)
	return cmd
}

type connectFunc func() (*find.Client, error)

func newSearchCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Show the best ranked matches for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			results, err := client.Search(strings.Join(args, " "))
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func newDebugCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "debug <text>",
		Short: "List entries whose name or path contains text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			results, err := client.DebugSearch(strings.Join(args, " "))
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func newSummaryCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count indexed entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Summary()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total items: %d\nApps: %d\nFiles: %d\n",
				resp.Int("total"), resp.Int("apps"), resp.Int("files"))
			for _, cat := range indexer.Categories {
				fmt.Fprintf(out, "  %s %d\n", categoryLabel(string(cat)), resp.Int("category-"+string(cat)))
			}
			return nil
		},
	}
}

func newStatusCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show build state of the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			resp, err := client.Status()
			if err != nil {
				return err
			}
			for _, key := range []string{"building", "entries", "generation", "built-at"} {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, resp.Attrs[key])
			}
			return nil
		},
	}
}

func newReindexCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [root...]",
		Short: "Rebuild the index, from the given roots when present",
		Long: `Rebuild the index and wait for it to be installed.

Without arguments the daemon's configured roots are used. Roots prefixed
with "app:" are scanned as application roots, others as file roots.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			count, err := client.Reindex(args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed: %d\n", count)
			return nil
		},
	}
}

func newInteractiveCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Search each line read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := connect()
			if err != nil {
				return err
			}
			defer client.Close()

			return runInteractive(client, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runInteractive(client *find.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		query := strings.TrimSpace(scanner.Text())
		if query == "quit" || query == "exit" {
			return nil
		}
		if query != "" {
			results, err := client.Search(query)
			if err != nil {
				return err
			}
			printResults(out, results)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
