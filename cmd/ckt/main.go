// Command ckt compiles adder workloads and inspects the resulting plans.
//
//	ckt gen        compile an adder, write <out>.ckt and <out>.stats
//	ckt stats      print a .stats sidecar
//	ckt roundtrip  compile, re-decode and spot check the evaluation
//
// Configuration comes from ckt.yaml in the working directory and from
// CKT_* environment variables: bits, address_cap, out, checks.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/consensys/gnark/logger"
	"github.com/spf13/viper"

	"github.com/cktfmt/ckt"
	"github.com/cktfmt/ckt/adder"
	"github.com/cktfmt/ckt/leveled"
)

func main() {
	log := logger.Logger()

	viper.SetDefault("bits", 32)
	viper.SetDefault("address_cap", 0)
	viper.SetDefault("out", "adder")
	viper.SetDefault("checks", 100)
	viper.SetConfigName("ckt")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("ckt")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("read config")
		}
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ckt gen|stats|roundtrip")
		os.Exit(2)
	}
	var err error
	switch cmd := os.Args[1]; cmd {
	case "gen":
		err = runGen()
	case "stats":
		err = runStats(os.Args[2:])
	case "roundtrip":
		err = runRoundtrip()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg(os.Args[1])
	}
}

func compile() (*ckt.Plan, error) {
	c := adder.Generate(viper.GetInt("bits"))
	return ckt.Compile(c, ckt.WithAddressCap(viper.GetUint64("address_cap")))
}

func runGen() error {
	plan, err := compile()
	if err != nil {
		return err
	}
	stream, err := plan.EncodeStream()
	if err != nil {
		return err
	}
	out := viper.GetString("out")
	if err := os.WriteFile(out+".ckt", stream, 0o644); err != nil {
		return err
	}
	stats := plan.Stats
	stats.EncodedBytes = uint64(len(stream))
	blob, err := stats.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(out+".stats", blob, 0o644); err != nil {
		return err
	}
	log := logger.Logger()
	log.Info().
		Str("stream", out+".ckt").
		Int("bytes", len(stream)).
		Uint64("scratch", plan.ScratchSize).
		Msg("wrote plan")
	return nil
}

func runStats(args []string) error {
	path := viper.GetString("out") + ".stats"
	if len(args) > 0 {
		path = args[0]
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var s leveled.Stats
	if err := s.UnmarshalBinary(blob); err != nil {
		return err
	}
	fmt.Printf("primary inputs: %d\n", s.PrimaryInputs)
	fmt.Printf("gates:          %d (%d XOR, %d AND)\n", s.TotalGates(), s.XorGates, s.AndGates)
	fmt.Printf("outputs:        %d\n", s.Outputs)
	fmt.Printf("levels:         %d\n", s.Levels)
	fmt.Printf("scratch size:   %d\n", s.ScratchSize)
	if s.EncodedBytes > 0 {
		fmt.Printf("encoded bytes:  %d\n", s.EncodedBytes)
	}
	return nil
}

func runRoundtrip() error {
	bits := viper.GetInt("bits")
	plan, err := compile()
	if err != nil {
		return err
	}
	stream, err := plan.EncodeStream()
	if err != nil {
		return err
	}
	decoded := &ckt.Plan{
		PrimaryInputs: plan.PrimaryInputs,
		Outputs:       plan.Outputs,
		ScratchSize:   plan.ScratchSize,
	}
	if err := decoded.DecodeStream(stream); err != nil {
		return err
	}

	r := rand.New(rand.NewSource(0))
	checks := viper.GetInt("checks")
	mask := uint64(1)<<bits - 1
	for i := 0; i < checks; i++ {
		a := r.Uint64() & mask
		b := r.Uint64() & mask
		out, err := decoded.Evaluate(context.Background(), adder.Inputs(bits, a, b))
		if err != nil {
			return err
		}
		if got := adder.Sum(out); got != a+b {
			return fmt.Errorf("%d + %d evaluated to %d", a, b, got)
		}
	}
	log := logger.Logger()
	log.Info().
		Int("checks", checks).
		Int("bytes", len(stream)).
		Msg("roundtrip ok")
	return nil
}
