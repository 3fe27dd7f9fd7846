// digitnet-train: trains a feed-forward digit classifier on MNIST
//
// Usage:
//
//	digitnet-train -data=data -arch="128 10" -epochs=5 -lr=0.01 -model=model.bin
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"digitnet/dataset"
	"digitnet/nn"
	"digitnet/nn/layers"
	"digitnet/utils"
)

var (
	name          = flag.String("name", "mnist", "Run name recorded in the analysis file")
	dataRoot      = flag.String("data", "data", "Directory holding the MNIST files")
	format        = flag.String("format", "idx", "Dataset format: idx, csv")
	arch          = flag.String("arch", "128 10", "Layer sizes after the input, e.g. \"128 64 10\"")
	activation    = flag.String("act", "relu", "Hidden layer activation: relu, sigmoid")
	outActivation = flag.String("out-act", "sigmoid", "Output layer activation: relu, sigmoid")
	costName      = flag.String("cost", "mse", "Cost function: mse, crossentropy")
	learningRate  = flag.Float64("lr", 0.01, "Learning rate")
	epochs        = flag.Int("epochs", 5, "Number of training epochs")
	batchSize     = flag.Int("batch", 10, "Mini-batch size")
	seed          = flag.Uint64("seed", 0, "Random seed (0 = time based)")
	resume        = flag.String("resume", "", "Continue training a saved model instead of building one")
	modelFile     = flag.String("model", "model.bin", "Output model file")
	jsonFile      = flag.String("json", "", "Also export weights as JSON")
	analysisFile  = flag.String("analysis", "", "Append a run record to this CSV file")
	verbose       = flag.Bool("verbose", true, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	config, err := configFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      digitnet Trainer                        ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Architecture:  %v\n", config.Architecture)
	fmt.Printf("  Activation:    %s / %s\n", config.Activation, config.OutputActivation)
	fmt.Printf("  Cost:          %s\n", config.Cost)
	fmt.Printf("  Epochs:        %d\n", config.Epochs)
	fmt.Printf("  Batch size:    %d\n", config.BatchSize)
	fmt.Printf("  Learning Rate: %.4f\n", config.LearningRate)
	fmt.Printf("  Data:          %s (%s)\n", config.DataRoot, config.Format)
	fmt.Println()

	stats := &utils.TimingStats{}

	fmt.Println("Loading dataset...")
	start := time.Now()
	ds, err := loadDataset(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}
	if len(ds.TrainInputs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no training samples in %s\n", config.DataRoot)
		os.Exit(1)
	}
	stats.DataLoadingTime = time.Since(start)
	fmt.Printf("Loaded %d training and %d test samples in %.2fs\n",
		len(ds.TrainInputs), len(ds.TestInputs), stats.DataLoadingTime.Seconds())

	start = time.Now()
	net, err := buildNetwork(config, ds.TrainInputs[0].Rows(), stats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building network: %v\n", err)
		os.Exit(1)
	}
	stats.ModelInitTime = time.Since(start)
	if net.OutputNodes() != ds.TrainTargets[0].Rows() {
		fmt.Fprintf(os.Stderr, "Error: network has %d outputs, labels have %d classes\n",
			net.OutputNodes(), ds.TrainTargets[0].Rows())
		os.Exit(1)
	}
	fmt.Printf("Model: %d layers, %d -> %d\n", len(net.Layers()), net.InputNodes(), net.OutputNodes())

	fmt.Println("\nStarting training...")
	if err := net.Train(config.Epochs, config.BatchSize, ds.TrainInputs, ds.TrainTargets); err != nil {
		fmt.Fprintf(os.Stderr, "Error training: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Training took %d seconds\n", net.TrainingSeconds())

	accuracy, err := net.Test(ds.TestInputs, ds.TestTargets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error testing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Accuracy on %d test samples: %.2f%%\n", len(ds.TestInputs), accuracy)
	stats.TotalTime += stats.DataLoadingTime + stats.ModelInitTime + stats.EvaluationTime
	utils.PrintTimingStats(stats)

	fmt.Printf("\nSaving model to %s...\n", *modelFile)
	if err := net.Save(*modelFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
		os.Exit(1)
	}
	if *jsonFile != "" {
		fmt.Printf("Exporting weights to %s...\n", *jsonFile)
		if err := utils.SaveWeights(*jsonFile, net.ExportWeights()); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting weights: %v\n", err)
			os.Exit(1)
		}
	}
	if *analysisFile != "" {
		rec := utils.RunRecord{
			Name:           config.Name,
			Activator:      config.Activation,
			Cost:           net.Cost().Tag(),
			Inputs:         net.InputNodes(),
			Architecture:   config.Architecture,
			Epochs:         config.Epochs,
			BatchSize:      config.BatchSize,
			LearningRate:   config.LearningRate,
			EndTime:        time.Now().Unix(),
			SecondsToTrain: net.TrainingSeconds(),
			Accuracy:       accuracy,
		}
		if err := utils.AppendRunRecord(*analysisFile, rec); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing analysis: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Println("Done!")
}

func configFromFlags() (utils.Config, error) {
	config := utils.DefaultConfig()
	architecture, err := utils.ParseArchitecture(*arch)
	if err != nil {
		return config, err
	}
	config.Name = *name
	config.Architecture = architecture
	config.Activation = *activation
	config.OutputActivation = *outActivation
	config.Cost = *costName
	config.LearningRate = *learningRate
	config.Epochs = *epochs
	config.BatchSize = *batchSize
	config.Seed = *seed
	config.DataRoot = *dataRoot
	config.Format = *format
	return config, utils.ValidateConfig(&config)
}

func loadDataset(config utils.Config) (*dataset.MNIST, error) {
	if config.Format == "csv" {
		return dataset.LoadMNISTCSV(config.DataRoot)
	}
	return dataset.LoadMNISTDir(config.DataRoot)
}

func buildNetwork(config utils.Config, inputs int, stats *utils.TimingStats) (*nn.Network, error) {
	opts := []nn.Option{
		nn.WithLogger(log.New(os.Stdout, "", 0)),
		nn.WithTimingStats(stats),
	}
	if config.Seed != 0 {
		opts = append(opts, nn.WithSeed(config.Seed))
	}
	if *resume != "" {
		fmt.Printf("Resuming from %s\n", *resume)
		return nn.Load(*resume, opts...)
	}

	cost, err := nn.ParseCost(config.Cost)
	if err != nil {
		return nil, err
	}
	hidden, err := layers.ParseActivator(config.Activation)
	if err != nil {
		return nil, err
	}
	output, err := layers.ParseActivator(config.OutputActivation)
	if err != nil {
		return nil, err
	}

	net, err := nn.NewNetwork(inputs, float32(config.LearningRate), cost, opts...)
	if err != nil {
		return nil, err
	}
	last := len(config.Architecture) - 1
	for i, nodes := range config.Architecture {
		act := hidden
		if i == last {
			act = output
		}
		if err := net.AddLayer(act, nodes); err != nil {
			return nil, err
		}
	}
	return net, nil
}
