package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"vt-go/internal/app"
	"vt-go/internal/config"
	"vt-go/internal/model"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	// A missing .env is fine; the config file and environment still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := app.LoadConfig(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a VTApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "pin add").
func newApp(ctx context.Context, operation string, args []string) (*app.VTApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewVTApp(ctx, cfg, operation, strings.Join(args, " "))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// closeApp closes a and reports a close failure unless the command already failed.
func closeApp(a *app.VTApp, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, s := range args {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", s)
		}
		out[i] = v
	}
	return out, nil
}

func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func printPhoto(i int, p *model.Photo) {
	state := "pending"
	if p.HasData() {
		state = fmt.Sprintf("%dx%d", p.Width, p.Height)
	}
	fmt.Printf("%3d  %s  %-9s  %s\n", i, p.ID, state, p.URL)
}

var rootCmd = &cobra.Command{
	Use:          "vt",
	Short:        "Virtual Tourist travel journal",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		journalID := uuid.New().String()
		cfg := config.NewConfig(journalID, defaults["base_dir"])
		cfg.Flickr.APIKey, _ = cmd.Flags().GetString("flickr-key")

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Journal ID: %s\n", journalID)
		fmt.Printf("Base Dir:   %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Journal ID:  %s\n", cfg.JournalID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s (%s)\n", cfg.LogDir, cfg.LogLevel)
		fmt.Printf("Flickr:      %s (key set: %t)\n", cfg.Flickr.BaseURL, cfg.Flickr.APIKey != "")
		fmt.Printf("Geocoder:    %s\n", cfg.Geocoder.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:       %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the snapshot encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		if err := app.SetupKeys(cfg, pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Keys written to %s\n", cfg.Encryption.PublicKeyPath)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage snapshot vaults",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that every configured vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := app.CheckVaults(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Printf("%d vault(s) OK\n", len(cfg.Vaults))
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the journal database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := app.MigrateJournal(cfg); err != nil {
			return err
		}
		fmt.Println("Journal is up to date.")
		return nil
	},
}

// pin command
var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage pins",
}

var pinAddCmd = &cobra.Command{
	Use:   "add LAT LON",
	Short: "Drop a pin",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		coords, err := parseFloats(args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "pin add", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		pin, err := a.AddPin(cmd.Context(), coords[0], coords[1])
		if err != nil {
			return err
		}
		fmt.Printf("Pin %s at %g,%g  %s\n", pin.ID, pin.Latitude, pin.Longitude, pin.Title)
		return nil
	},
}

var pinListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pins",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "pin list", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		pins, err := a.ListPins()
		if err != nil {
			return err
		}
		if len(pins) == 0 {
			fmt.Println("No pins.")
			return nil
		}
		for _, p := range pins {
			fmt.Printf("%s  %10.4f %10.4f  %s\n", p.ID, p.Latitude, p.Longitude, p.Title)
		}
		return nil
	},
}

var pinRmCmd = &cobra.Command{
	Use:   "rm PIN",
	Short: "Remove a pin and its album",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "pin rm", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.RemovePin(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed pin %s\n", args[0])
		return nil
	},
}

// album command
var albumCmd = &cobra.Command{
	Use:   "album",
	Short: "View and refresh a pin's photo album",
}

var albumShowCmd = &cobra.Command{
	Use:   "show PIN",
	Short: "Show a pin's album, searching for photos if it is empty",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		download, _ := cmd.Flags().GetBool("download")

		a, err := newApp(cmd.Context(), "album show", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		photos, err := a.Album(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(photos) == 0 {
			fmt.Println("No photos found near this pin.")
			return nil
		}
		for i, p := range photos {
			printPhoto(i, p)
		}

		if !download {
			return nil
		}
		n, err := a.DownloadAlbum(cmd.Context(), args[0], func(p *model.Photo) {
			fmt.Printf("downloaded %s (%dx%d)\n", p.ID, p.Width, p.Height)
		})
		if err != nil {
			return err
		}
		fmt.Printf("Downloaded %d photo(s)\n", n)
		return nil
	},
}

var albumRefreshCmd = &cobra.Command{
	Use:   "refresh PIN",
	Short: "Replace a pin's album with a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "album refresh", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		changes, err := a.RefreshAlbum(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, c := range changes {
			fmt.Printf("%-6s %3d  %s\n", c.Kind, c.Index, c.PhotoID)
		}
		return nil
	},
}

// photo command
var photoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Manage photos",
}

var photoRmCmd = &cobra.Command{
	Use:   "rm PIN PHOTO...",
	Short: "Remove photos from a pin's album",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "photo rm", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.RemovePhotos(args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d photo(s)\n", n)
		return nil
	},
}

var photoSaveCmd = &cobra.Command{
	Use:   "save PHOTO PATH",
	Short: "Write a photo to a file, downloading it if needed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		width, _ := cmd.Flags().GetInt("width")

		a, err := newApp(cmd.Context(), "photo save", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.SavePhoto(cmd.Context(), args[0], args[1], width); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", args[1])
		return nil
	},
}

// map command
var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "View and set the saved map viewport",
}

var mapShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved viewport",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "map show", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		v, err := a.Viewport()
		if err != nil {
			return err
		}
		fmt.Printf("center %g,%g  span %g x %g\n", v.CenterLatitude, v.CenterLongitude, v.SpanLatitude, v.SpanLongitude)
		return nil
	},
}

var mapSetCmd = &cobra.Command{
	Use:   "set LAT LON SPAN_LAT SPAN_LON",
	Short: "Save a viewport",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		v, err := app.ParseViewport(strings.Join(args, " "))
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "map set", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		return a.SaveViewport(v)
	},
}

var mapWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Read viewports from stdin and keep the latest saved",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "map watch", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.WatchViewport(cmd.Context(), os.Stdin)
		if err != nil {
			return err
		}
		fmt.Printf("Tracked %d viewport(s)\n", n)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View journal operation history",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "history", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				duration = op.FinishedAt.Time.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local journal with the latest vault snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var pass string
		if cfg.Encryption.Type == "age" {
			if pass, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		version, err := app.RestoreJournal(cmd.Context(), cfg, pass, force)
		if err != nil {
			return err
		}
		fmt.Printf("Restored journal at version %d\n", version)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("flickr-key", "", "Flickr API key to store in the config file")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)

	dbCmd.AddCommand(dbMigrateCmd)

	pinCmd.AddCommand(pinAddCmd)
	pinCmd.AddCommand(pinListCmd)
	pinCmd.AddCommand(pinRmCmd)

	albumCmd.AddCommand(albumShowCmd)
	albumShowCmd.Flags().BoolP("download", "d", false, "Download missing photos")
	albumCmd.AddCommand(albumRefreshCmd)

	photoCmd.AddCommand(photoRmCmd)
	photoCmd.AddCommand(photoSaveCmd)
	photoSaveCmd.Flags().IntP("width", "w", 0, "Resize to this width (0 keeps the original)")

	mapCmd.AddCommand(mapShowCmd)
	mapCmd.AddCommand(mapSetCmd)
	mapCmd.AddCommand(mapWatchCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(albumCmd)
	rootCmd.AddCommand(photoCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().Bool("force", false, "Overwrite an existing local journal")
}
