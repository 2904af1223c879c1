package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	ashrand "github.com/Borislavv/go-ash-rand"
	"github.com/Borislavv/go-ash-rand/internal/algorithm"
	"github.com/Borislavv/go-ash-rand/internal/diagnostics"
	"github.com/Borislavv/go-ash-rand/internal/entropy"
	"github.com/Borislavv/go-ash-rand/internal/hostref"
	"github.com/Borislavv/go-ash-rand/internal/shared/bytes"
	"github.com/Borislavv/go-ash-rand/internal/shared/rate"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type sampleFlags struct {
	n    int
	kind string
	out  string
}

func (s *sampleFlags) register(cmd *cobra.Command, defaultN int) {
	cmd.Flags().IntVarP(&s.n, "samples", "n", defaultN, "requested sample count (rounded up to the lane grid)")
	cmd.Flags().StringVarP(&s.kind, "kind", "k", algorithm.Uniform.String(), "distribution (uniform, normal)")
	cmd.Flags().StringVarP(&s.out, "out", "o", "", "write samples as little-endian float32 to this file")
}

func fillCmd(root *rootFlags) *cobra.Command {
	sf := &sampleFlags{}
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Run one fill and print a summary of the reservoir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := algorithm.ParseKind(sf.kind)
			if err != nil {
				return err
			}
			cfg, err := root.session(cmd)
			if err != nil {
				return err
			}

			r, err := ashrand.New(cmd.Context(), cfg, root.libraryLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer r.Close()

			if err = r.RequireReservoir(sf.n); err != nil {
				return err
			}
			from := time.Now()
			if err = r.Fill(kind); err != nil {
				return err
			}
			elapsed := time.Since(from)

			samples := r.Reservoir()
			if sf.out != "" {
				if err = writeSamplesFile(sf.out, samples); err != nil {
					return err
				}
			}
			summary, err := diagnostics.Summarize(kind, samples)
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), r.Name(), r.Pipelines(), kind, summary, elapsed)
			return nil
		},
	}
	sf.register(cmd, 1<<20)
	return cmd
}

func streamCmd(root *rootFlags) *cobra.Command {
	sf := &sampleFlags{}
	var fills, perSecond int
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Run repeated rate-limited fills and append every reservoir to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sf.out == "" {
				return fmt.Errorf("--out is required")
			}
			kind, err := algorithm.ParseKind(sf.kind)
			if err != nil {
				return err
			}
			cfg, err := root.session(cmd)
			if err != nil {
				return err
			}
			log := consoleLogger(cmd.ErrOrStderr())

			r, err := ashrand.New(cmd.Context(), cfg, root.libraryLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer r.Close()
			if err = r.RequireReservoir(sf.n); err != nil {
				return err
			}

			f, err := os.Create(sf.out)
			if err != nil {
				return fmt.Errorf("create %s: %w", sf.out, err)
			}
			defer f.Close()
			w := bufio.NewWriterSize(f, 1<<20)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			throttle := rate.NewThrottle(ctx, perSecond)
			from := time.Now()
			for i := 0; i < fills; i++ {
				if err = throttle.Take(ctx); err != nil {
					return err
				}
				if err = r.Fill(kind); err != nil {
					return err
				}
				if err = writeSamples(w, r.Reservoir()); err != nil {
					return err
				}
				log.Debug().Int("fill", i+1).Int("samples", r.ReservoirSize()).Msg("reservoir written")
			}
			if err = w.Flush(); err != nil {
				return fmt.Errorf("flush %s: %w", sf.out, err)
			}

			total := int64(fills) * int64(r.ReservoirSize())
			log.Info().
				Str("engine", r.Name()).
				Int("fills", fills).
				Str("samples", bytes.FmtCount(total)).
				Str("size", bytes.FmtMem(total*4)).
				Str("elapsed", time.Since(from).String()).
				Msg("stream finished")
			return nil
		},
	}
	sf.register(cmd, 1<<20)
	cmd.Flags().IntVar(&fills, "fills", 10, "number of fills")
	cmd.Flags().IntVar(&perSecond, "rate", 0, "fills per second (0 means unlimited)")
	return cmd
}

func referenceCmd(root *rootFlags) *cobra.Command {
	sf := &sampleFlags{}
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Fill samples on the host with the reference generator and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := algorithm.ParseKind(sf.kind)
			if err != nil {
				return err
			}
			cfg, err := root.session(cmd)
			if err != nil {
				return err
			}
			var master uint64
			if cfg.Seed != nil {
				master = *cfg.Seed
			} else if master, err = (entropy.System{}).Uint64(); err != nil {
				return err
			}

			samples := make([]float32, sf.n)
			from := time.Now()
			if err = hostref.Fill(kind, samples, master, cfg.HostWorkers); err != nil {
				return err
			}
			elapsed := time.Since(from)

			if sf.out != "" {
				if err = writeSamplesFile(sf.out, samples); err != nil {
					return err
				}
			}
			summary, err := diagnostics.Summarize(kind, samples)
			if err != nil {
				return err
			}
			name := fmt.Sprintf("host/xoshiro256+ x%d", cfg.HostWorkers)
			renderSummary(cmd.OutOrStdout(), name, nil, kind, summary, elapsed)
			return nil
		},
	}
	sf.register(cmd, 1<<20)
	return cmd
}

func configCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective session configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.session(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func renderSummary(w io.Writer, name string, pipelines []string, kind algorithm.Kind, s diagnostics.Summary, elapsed time.Duration) {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

	verdict := "ok"
	if s.KS >= diagnostics.KSCritical(s.Count) {
		verdict = "suspicious"
	}
	throughput := "-"
	if elapsed > 0 {
		throughput = bytes.FmtCount(int64(float64(s.Count)/elapsed.Seconds())) + "/s"
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"METRIC", "VALUE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	rows := [][]string{{"generator", name}}
	for _, p := range pipelines {
		rows = append(rows, []string{"pipeline", p})
	}
	table.AppendBulk(append(rows, [][]string{
		{"distribution", kind.String()},
		{"samples", strconv.Itoa(s.Count)},
		{"elapsed", elapsed.String()},
		{"throughput", throughput},
		{"mean", f(s.Mean)},
		{"stddev", f(s.StdDev)},
		{"min", f(s.Min)},
		{"max", f(s.Max)},
		{"median", f(s.Median)},
		{"p01", f(s.P01)},
		{"p99", f(s.P99)},
		{"skew", f(s.Skew)},
		{"excess kurtosis", f(s.ExKurtosis)},
		{"ks distance", f(s.KS) + " (" + verdict + ")"},
	}...))
	table.Render()
}

func writeSamplesFile(path string, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if err = writeSamples(w, samples); err != nil {
		_ = f.Close()
		return err
	}
	if err = w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func writeSamples(w io.Writer, samples []float32) error {
	var buf [4]byte
	for _, v := range samples {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
	}
	return nil
}
