package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"httpcraft/internal/cache"
	"httpcraft/internal/cli"
	"httpcraft/internal/template"
)

var flagCacheNamespace string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the persistent plugin cache",
	Long: `Inspect and manage the cache plugins persist under ~/.httpcraft/cache.
Each plugin writes into its own namespace; entries without an explicit
namespace land in "default".`,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&flagCacheNamespace, "namespace", "", "Cache namespace (default: all for list, \"default\" for get and delete)")
	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cache entries",
			Args:  cobra.NoArgs,
			RunE:  runCacheList,
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one cached value",
			Args:  cobra.ExactArgs(1),
			RunE:  runCacheGet,
		},
		&cobra.Command{
			Use:   "delete <key>",
			Short: "Delete one cache entry",
			Args:  cobra.ExactArgs(1),
			RunE:  runCacheDelete,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear a namespace, or the whole cache",
			Args:  cobra.NoArgs,
			RunE:  runCacheClear,
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show per-namespace entry counts",
			Args:  cobra.NoArgs,
			RunE:  runCacheStats,
		},
	)
	rootCmd.AddCommand(cacheCmd)
}

// newCacheManager opens the on-disk cache without the background sweep;
// cache commands are one-shot.
func newCacheManager() *cache.Manager {
	return cache.NewManager(cache.Options{CleanupInterval: -1})
}

func runCacheList(cmd *cobra.Command, args []string) error {
	m := newCacheManager()
	defer m.Stop()
	return cli.WriteCacheEntries(cmd.OutOrStdout(), m, flagCacheNamespace, flagJSON)
}

func runCacheGet(cmd *cobra.Command, args []string) error {
	m := newCacheManager()
	defer m.Stop()

	ns := flagCacheNamespace
	if ns == "" {
		ns = "default"
	}
	value, ok := m.Get(ns, args[0])
	if !ok {
		return fmt.Errorf("key %q not found in namespace %q", args[0], ns)
	}
	if flagJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), value)
	}
	fmt.Fprintln(cmd.OutOrStdout(), template.Stringify(value))
	return nil
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	m := newCacheManager()
	defer m.Stop()

	ns := flagCacheNamespace
	if ns == "" {
		ns = "default"
	}
	if !m.Delete(ns, args[0]) {
		return fmt.Errorf("key %q not found in namespace %q", args[0], ns)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q from namespace %q\n", args[0], ns)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	m := newCacheManager()
	defer m.Stop()

	if flagCacheNamespace == "" {
		m.ClearAll()
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared all cache namespaces")
		return nil
	}
	m.Clear(flagCacheNamespace)
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared namespace %q\n", flagCacheNamespace)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	m := newCacheManager()
	defer m.Stop()
	return cli.WriteCacheStats(cmd.OutOrStdout(), m.Stats(), flagJSON)
}
