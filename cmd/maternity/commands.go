package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/IANDYI/maternity-service/internal/adapters/repository"
	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/IANDYI/maternity-service/internal/core/services"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cliOptions are the persistent flags shared by every subcommand
type cliOptions struct {
	dbPath    string
	timezone  string
	patientID string
	verbose   bool
	clock     ports.Clock // nil means the system clock in --tz
}

func newRootCmd(out io.Writer, clock ports.Clock) *cobra.Command {
	opts := &cliOptions{clock: clock}

	rootCmd := &cobra.Command{
		Use:          "maternity",
		Short:        "Track a pregnancy locally: gestational week, vitals, kicks and contractions",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", defaultDBPath(), "SQLite state file")
	rootCmd.PersistentFlags().StringVar(&opts.timezone, "tz", "Local", "IANA timezone for calendar dates")
	rootCmd.PersistentFlags().StringVar(&opts.patientID, "patient", "local", "patient id to track")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine events to stderr")

	rootCmd.AddCommand(lmpCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(bmiCmd(opts))
	rootCmd.AddCommand(vitalsCmd(opts))
	rootCmd.AddCommand(kickCmd(opts))
	rootCmd.AddCommand(contractionCmd(opts))
	rootCmd.AddCommand(milestonesCmd(opts))
	rootCmd.AddCommand(bagCmd(opts))

	return rootCmd
}

func defaultDBPath() string {
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		return path
	}
	return "maternity.db"
}

// run opens the patient's engine over the SQLite store, runs fn and prints its result as JSON
func (o *cliOptions) run(cmd *cobra.Command, fn func(ctx context.Context, engine ports.ClinicalEngine) (any, error)) error {
	store, err := repository.OpenSQLiteStore(o.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	clock := o.clock
	if clock == nil {
		clock = services.NewSystemClock(o.timezone)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	engine, err := services.NewEngine(ctx, services.EngineConfig{
		PatientID: o.patientID,
		Store:     store.ForPatient(o.patientID),
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	result, err := fn(ctx, engine)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func lmpCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lmp YYYY-MM-DD",
		Short: "Set the last menstrual period date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				if _, err := engine.Gestation().SetLMP(ctx, args[0]); err != nil {
					return nil, err
				}
				return engine.Gestation().Summary(), nil
			})
		},
	}
}

func statusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gestational week, trimester and open sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return map[string]any{
					"pregnancy":     engine.Gestation().Summary(),
					"bmi":           engine.Gestation().BMI(),
					"latest_vitals": engine.Vitals().Latest(),
					"kick_session":  engine.Kicks().Status(),
					"contraction":   engine.Contractions().Active(),
					"labor_alert":   engine.Contractions().IsAlertActive(),
				}, nil
			})
		},
	}
}

func bmiCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bmi HEIGHT_CM WEIGHT_KG",
		Short: "Compute and store the pre-pregnancy BMI",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseFloat(args[0], 64)
			if err != nil || height <= 0 {
				return fmt.Errorf("invalid height %q", args[0])
			}
			weight, err := strconv.ParseFloat(args[1], 64)
			if err != nil || weight <= 0 {
				return fmt.Errorf("invalid weight %q", args[1])
			}
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				bmi, err := engine.Gestation().SetBMI(ctx, height, weight)
				if err != nil {
					return nil, err
				}
				return map[string]float64{"bmi": bmi}, nil
			})
		},
	}
}

func vitalsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vitals",
		Short: "Show the vitals timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Vitals().All(), nil
			})
		},
	}

	var input domain.VitalsInput
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record this week's weight, hemoglobin and blood pressure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Vitals().Add(ctx, input)
			})
		},
	}
	addCmd.Flags().Float64Var(&input.Weight, "weight", 0, "weight in kg")
	addCmd.Flags().Float64Var(&input.Hb, "hb", 0, "hemoglobin in g/dL")
	addCmd.Flags().StringVar(&input.BP, "bp", "", "blood pressure as sys/dia")
	_ = addCmd.MarkFlagRequired("weight")
	_ = addCmd.MarkFlagRequired("hb")
	_ = addCmd.MarkFlagRequired("bp")

	cmd.AddCommand(addCmd)
	return cmd
}

func kickCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kick",
		Short: "Count fetal movements",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start a kick-counting session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Kicks().Start(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tap",
		Short: "Record one movement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Kicks().Tap(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "finish",
		Short: "Finish the session and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Kicks().Finish(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List finished sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Kicks().History(), nil
			})
		},
	})

	return cmd
}

func contractionCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contraction",
		Aliases: []string{"contractions"},
		Short:   "Time labor contractions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Mark the start of a contraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Contractions().Start(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Mark the end of the open contraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				record, err := engine.Contractions().Stop(ctx)
				if err != nil {
					return nil, err
				}
				return contractionResult(engine, &record), nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Start a contraction, or stop the open one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				record, err := engine.Contractions().Toggle(ctx)
				if err != nil {
					return nil, err
				}
				return contractionResult(engine, record), nil
			})
		},
	})

	var confirmed bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the contraction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				if err := engine.Contractions().Clear(ctx, confirmed); err != nil {
					return nil, fmt.Errorf("%w (pass --yes)", err)
				}
				return engine.Contractions().History(), nil
			})
		},
	}
	clearCmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "confirm deleting the history")
	cmd.AddCommand(clearCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List contractions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return contractionResult(engine, nil), nil
			})
		},
	})

	return cmd
}

func contractionResult(engine ports.ClinicalEngine, record *domain.ContractionRecord) map[string]any {
	timer := engine.Contractions()
	result := map[string]any{
		"active":       timer.Active(),
		"history":      timer.History(),
		"alert_active": timer.IsAlertActive(),
	}
	if record != nil {
		result["record"] = record
	}
	return result
}

func milestonesCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "Show the antenatal care checklist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Milestones().List(), nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle ID",
		Short: "Mark a milestone done, or undo it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.Milestones().Toggle(ctx, args[0])
			})
		},
	})
	return cmd
}

func bagCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bag",
		Short: "Show the hospital bag checklist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.HospitalBag().Items(), nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle ITEM",
		Short: "Pack or unpack an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, engine ports.ClinicalEngine) (any, error) {
				return engine.HospitalBag().Toggle(ctx, args[0])
			})
		},
	})
	return cmd
}
