package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"kvmd-streamer-go/internal/bootstrap"
	"kvmd-streamer-go/internal/platform/config"
	"kvmd-streamer-go/internal/platform/storage"
	httptransport "kvmd-streamer-go/internal/transport/http"
)

const serviceName = "kvmd-streamer"

// ServiceFactory builds the OS service for prg.
type ServiceFactory func(prg *Program, cfg *service.Config) (service.Service, error)

func defaultFactory(prg *Program, cfg *service.Config) (service.Service, error) {
	return service.New(prg, cfg)
}

type rootOptions struct {
	configPath string
	run        RunFunc
	factory    ServiceFactory
}

// serviceConfig 描述系统服务，安装后以 serve 子命令启动
func serviceConfig(configPath string) *service.Config {
	args := []string{"serve"}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}
		args = append(args, "--config", configPath)
	}
	return &service.Config{
		Name:        serviceName,
		DisplayName: "KVM Streamer API",
		Description: "Snapshot, OCR and streaming mode control for the KVM video streamer.",
		Arguments:   args,
		Dependencies: []string{
			"After=network.target",
		},
	}
}

func (o *rootOptions) service() (service.Service, *Program, error) {
	prg := NewProgram(bootstrap.Options{ConfigPath: o.configPath}, o.run)
	s, err := o.factory(prg, serviceConfig(o.configPath))
	if err != nil {
		return nil, nil, fmt.Errorf("create service: %w", err)
	}
	return s, prg, nil
}

// NewRootCmd creates the root command and all subcommands for the CLI.
// A nil run or factory selects bootstrap.Run and kardianos/service.
func NewRootCmd(run RunFunc, factory ServiceFactory) *cobra.Command {
	if factory == nil {
		factory = defaultFactory
	}
	opts := &rootOptions{run: run, factory: factory}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := opts.service()
			if err != nil {
				return err
			}
			return s.Run()
		},
	}

	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "KVM streamer control API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default .config.yaml or $"+config.PathEnv+")")

	rootCmd.AddCommand(
		serveCmd,
		controlCmd(opts, "install", "Install the system service", "Service installed.", service.Service.Install),
		controlCmd(opts, "uninstall", "Uninstall the system service", "Service uninstalled.", service.Service.Uninstall),
		controlCmd(opts, "start", "Start the system service", "Service started.", service.Service.Start),
		controlCmd(opts, "stop", "Stop the system service", "Service stopped.", service.Service.Stop),
		controlCmd(opts, "restart", "Restart the system service", "Service restarted.", service.Service.Restart),
		statusCmd(opts),
		tokenCmd(opts),
		auditCmd(opts),
	)
	return rootCmd
}

func controlCmd(opts *rootOptions, use, short, done string, action func(service.Service) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := opts.service()
			if err != nil {
				return err
			}
			if err := action(s); err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		},
	}
}

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := opts.service()
			if err != nil {
				return err
			}
			status, err := s.Status()
			if err != nil {
				return fmt.Errorf("error getting status: %w", err)
			}
			switch status {
			case service.StatusRunning:
				fmt.Fprintln(cmd.OutOrStdout(), "Running")
			case service.StatusStopped:
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Unknown")
			}
			return nil
		},
	}
}

func tokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := config.NewLoader().WithPath(opts.configPath).Load()
			if err != nil {
				return err
			}
			auth := res.Config.Server.Auth
			if auth.Secret == "" {
				return fmt.Errorf("server.auth.secret is not configured")
			}
			token, err := httptransport.NewTokenVerifier(auth.Secret, auth.Issuer).Issue(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// auditCmd 列出最近的模式切换记录
func auditCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent streaming mode switches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := config.NewLoader().WithPath(opts.configPath).Load()
			if err != nil {
				return err
			}
			db, err := storage.Open(cmd.Context(), res.Config.Storage)
			if err != nil {
				return err
			}
			defer storage.Close(db)

			records, err := storage.NewModeSwitchRepository(db).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No mode switches recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tMODE\tOUTCOME\tDURATION\tREQUEST\tDIAGNOSTIC")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					rec.CreatedAt.Local().Format(time.DateTime),
					rec.Mode,
					rec.Outcome,
					time.Duration(rec.DurationMS)*time.Millisecond,
					rec.RequestID,
					rec.Diagnostic,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show")
	return cmd
}
