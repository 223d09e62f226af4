package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/learningmachine/catalogue"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
	"github.com/YuminosukeSato/learningmachine/store"
)

// 設定キー
const (
	keyLearnerType    = "learner.type"
	keyLearnerOptions = "learner.options"
	keyLearnerConfig  = "learner.config"
	keyLogLevel       = "log.level"
	keyStorePath      = "store.path"
)

// app はコマンド間で共有する状態
type app struct {
	v       *viper.Viper
	cfgFile string
	cat     *catalogue.Catalogue
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), cat: catalogue.Default()}

	root := &cobra.Command{
		Use:           "lmctl",
		Short:         "Train, inspect and run learning machines",
		Long:          `lmctl trains the registered learners on CSV data, writes them as text model files and binary snapshots, and runs predictions.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			return log.SetupLogger(cmd.ErrOrStderr(), a.v.GetString(keyLogLevel))
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./lmctl.yaml)")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("store", "lmctl.db", "snapshot database path")
	_ = a.v.BindPFlag(keyLogLevel, root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag(keyStorePath, root.PersistentFlags().Lookup("store"))

	root.AddCommand(
		a.newListCmd(),
		a.newTrainCmd(),
		a.newInfoCmd(),
		a.newHelpConfigCmd(),
		a.newPredictCmd(),
		a.newSnapshotsCmd(),
	)
	return root
}

func (a *app) initConfig() error {
	a.v.SetDefault(keyLearnerType, "LSSVM")
	a.v.SetDefault(keyLearnerOptions, "")
	a.v.SetDefault(keyLogLevel, "warn")
	a.v.SetDefault(keyStorePath, "lmctl.db")

	a.v.SetEnvPrefix("LMCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return errors.NewIOError("read config", a.cfgFile, err)
		}
		return nil
	}
	a.v.SetConfigName("lmctl")
	a.v.SetConfigType("yaml")
	a.v.AddConfigPath(".")
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config")
		}
	}
	return nil
}

// learnerOptions は learner.config (YAML の map) と learner.options ("(k v) ..." 形式) を合わせる。
// 同じキーは learner.options が優先する
func (a *app) learnerOptions() (*config.Options, error) {
	opts := config.New()
	if m := a.v.GetStringMap(keyLearnerConfig); len(m) > 0 {
		fromMap, err := config.FromMap(m)
		if err != nil {
			return nil, errors.Wrap(err, keyLearnerConfig)
		}
		merge(opts, fromMap)
	}
	if text := strings.TrimSpace(a.v.GetString(keyLearnerOptions)); text != "" {
		parsed, err := config.Parse(text)
		if err != nil {
			return nil, errors.Wrap(err, keyLearnerOptions)
		}
		merge(opts, parsed)
	}
	return opts, nil
}

func merge(dst, src *config.Options) {
	for _, k := range src.Keys() {
		group, _ := src.FindGroup(k)
		dst.Set(k, group...)
	}
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	st := store.NewSQLiteStore(a.v.GetString(keyStorePath))
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
