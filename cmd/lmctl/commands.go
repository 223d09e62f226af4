package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/portable"
	"github.com/YuminosukeSato/learningmachine/metrics"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
	"github.com/YuminosukeSato/learningmachine/store"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered learners, transformers and scalers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "learners:     %s\n", strings.Join(a.cat.Learners.Keys(), " "))
			fmt.Fprintf(out, "transformers: %s\n", strings.Join(a.cat.Transformers.Keys(), " "))
			fmt.Fprintf(out, "scalers:      %s\n", strings.Join(a.cat.Scalers.Keys(), " "))
			return nil
		},
	}
}

func (a *app) newTrainCmd() *cobra.Command {
	var (
		dataPath string
		outPath  string
		save     bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a learner on CSV data and write the model file",
		Long: `Train a learner on CSV data and write the model file.

Each CSV row holds the inputs followed by the outputs. The learner is
configured with --set before the data is read, so dom and cod decide
how a row is split.

Examples:
  lmctl train --learner LSSVM --set "(dom 2) (cod 1) (c 10) (gamma 0.5)" --data train.csv --out model.txt
  lmctl train --learner RLS --set "(dom 3)" --data train.csv --out rls.txt --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := a.v.GetString(keyLearnerType)
			p, err := portable.NewNamed(a.cat.Learners, name)
			if err != nil {
				return err
			}
			l, _ := p.Wrapped()

			opts, err := a.learnerOptions()
			if err != nil {
				return err
			}
			if _, err := l.Configure(opts); err != nil {
				return errors.Wrapf(err, "configure %s", name)
			}

			ds, err := readCSV(dataPath, l.DomainSize(), l.CodomainSize())
			if err != nil {
				return err
			}
			start := time.Now()
			n, err := model.FeedStream(ctx, l, sampleChan(ctx, ds))
			if err != nil {
				return err
			}
			if err := l.Train(); err != nil {
				return errors.Wrapf(err, "train %s", name)
			}
			log.GetLoggerWithName("lmctl").Info("trained",
				log.ModelNameKey, name,
				log.SamplesKey, n,
				log.DurationMsKey, time.Since(start).Milliseconds())

			if err := p.WriteFile(outPath); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "trained %s on %d samples, model written to %s\n", name, n, outPath)

			if save {
				st, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				id, err := store.Put(ctx, st, "learner", p)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "snapshot %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().String("learner", "LSSVM", "registered learner name")
	cmd.Flags().String("set", "", `learner options, e.g. "(dom 2) (c 10)"`)
	cmd.Flags().StringVar(&dataPath, "data", "", "CSV file with training samples")
	cmd.Flags().StringVar(&outPath, "out", "model.txt", "model file to write")
	cmd.Flags().BoolVar(&save, "save", false, "also store a binary snapshot")
	_ = cmd.MarkFlagRequired("data")
	_ = a.v.BindPFlag(keyLearnerType, cmd.Flags().Lookup("learner"))
	_ = a.v.BindPFlag(keyLearnerOptions, cmd.Flags().Lookup("set"))
	return cmd
}

func sampleChan(ctx context.Context, ds *dataset) <-chan model.Sample {
	ch := make(chan model.Sample)
	go func() {
		defer close(ch)
		for i := range ds.inputs {
			select {
			case ch <- model.Sample{Input: ds.inputs[i], Output: ds.outputs[i]}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// describable は学習器と変換器に共通の Info と ConfigHelp
type describable interface {
	Info() string
	ConfigHelp() string
}

// readModelFile はモデルファイルを学習器、変換器の順に試して読む
func (a *app) readModelFile(path string) (describable, error) {
	lp := portable.New(a.cat.Learners)
	err := lp.ReadFile(path)
	if err == nil {
		l, _ := lp.Wrapped()
		return l, nil
	}
	if !errors.Is(err, errors.ErrUnknownKey) {
		return nil, err
	}
	tp := portable.New(a.cat.Transformers)
	if err := tp.ReadFile(path); err != nil {
		return nil, err
	}
	t, _ := tp.Wrapped()
	return t, nil
}

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info MODEL",
		Short: "Print the description of a model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.readModelFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), m.Info())
			return nil
		},
	}
}

func (a *app) newHelpConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "help-config NAME",
		Short: "Print the configuration options of a learner, transformer or scaler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			var d describable
			switch {
			case a.cat.Learners.Has(name):
				d, _ = a.cat.Learners.Create(name)
			case a.cat.Transformers.Has(name):
				d, _ = a.cat.Transformers.Create(name)
			case a.cat.Scalers.Has(name):
				d, _ = a.cat.Scalers.Create(name)
			default:
				return errors.NewRegistryError("help-config", name, errors.ErrUnknownKey)
			}
			fmt.Fprint(cmd.OutOrStdout(), d.ConfigHelp())
			return nil
		},
	}
}

func (a *app) newPredictCmd() *cobra.Command {
	var (
		modelPath string
		dataPath  string
		plotPath  string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict CSV samples with a model file and report the MSE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p := portable.New(a.cat.Learners)
			if err := p.ReadFile(modelPath); err != nil {
				return err
			}
			l, _ := p.Wrapped()
			ds, err := readCSV(dataPath, l.DomainSize(), l.CodomainSize())
			if err != nil {
				return err
			}

			preds, err := predictAll(ctx, l, ds, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			mse, err := metrics.MSEPerDim(ds.outputs, preds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "MSE: %v\n", mat.Formatted(mse.T()))

			if plotPath != "" {
				if err := savePlot(ds.outputs, preds, 0, plotPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "plot written to %s\n", plotPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "model.txt", "model file written by train")
	cmd.Flags().StringVar(&dataPath, "data", "", "CSV file with inputs followed by true outputs")
	cmd.Flags().StringVar(&plotPath, "plot", "", "write a prediction-vs-truth scatter plot (png, svg or pdf)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func predictAll(ctx context.Context, l model.Learner, ds *dataset, out io.Writer) ([]*mat.VecDense, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputs := make(chan mat.Vector)
	go func() {
		defer close(inputs)
		for _, x := range ds.inputs {
			select {
			case inputs <- x:
			case <-ctx.Done():
				return
			}
		}
	}()

	preds := make([]*mat.VecDense, 0, ds.Len())
	for res := range model.PredictStream(ctx, l, inputs) {
		if res.Err != nil {
			return nil, res.Err
		}
		fmt.Fprintln(out, res.Prediction)
		preds = append(preds, res.Prediction.Mean())
	}
	if len(preds) != ds.Len() {
		return nil, errors.Newf("predict interrupted after %d of %d samples", len(preds), ds.Len())
	}
	return preds, nil
}

func (a *app) newSnapshotsCmd() *cobra.Command {
	var (
		kind   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			snaps, err := st.List(ctx, kind)
			if err != nil {
				return err
			}
			if asJSON {
				return writeSnapshotsJSON(cmd.OutOrStdout(), snaps)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tNAME\tBYTES\tCREATED")
			for _, s := range snaps {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Kind, s.Name, len(s.Payload), s.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list snapshots of this kind")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print snapshots as a JSON array")
	return cmd
}

// snapshotDTO は snapshots --json の 1 要素
type snapshotDTO struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	SchemaVersion int       `json:"schema_version"`
	Bytes         int       `json:"bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

func writeSnapshotsJSON(w io.Writer, snaps []store.Snapshot) error {
	dtos := make([]snapshotDTO, 0, len(snaps))
	for _, s := range snaps {
		dtos = append(dtos, snapshotDTO{
			ID:            s.ID,
			Kind:          s.Kind,
			Name:          s.Name,
			SchemaVersion: s.SchemaVersion,
			Bytes:         len(s.Payload),
			CreatedAt:     s.CreatedAt,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dtos)
}
