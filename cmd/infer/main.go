// digitnet-infer: classifies a digit image or scores a test set with a
// saved model
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"digitnet/dataset"
	"digitnet/nn"
	"digitnet/utils"
)

var (
	modelFile   = flag.String("model", "model.bin", "Binary model file")
	weightsFile = flag.String("weights", "", "JSON weights file (used instead of -model)")
	imageFile   = flag.String("image", "", "28x28 PPM/PGM digit image to classify")
	testImages  = flag.String("test-images", "", "IDX test images (with -test-labels)")
	testLabels  = flag.String("test-labels", "", "IDX test labels")
	testCSV     = flag.String("test-csv", "", "CSV test set, label first")
	topK        = flag.Int("topk", 3, "Top predictions to show")
	verbose     = flag.Bool("verbose", false, "Print the raw output column")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                     digitnet Inference                       ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")

	net, err := loadNetwork()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading model: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d layers, %d -> %d (%s)\n",
		len(net.Layers()), net.InputNodes(), net.OutputNodes(), net.Cost().Tag())

	switch {
	case *imageFile != "":
		classify(net, *imageFile)
	case *testImages != "" || *testCSV != "":
		evaluate(net)
	default:
		fmt.Fprintln(os.Stderr, "Nothing to do: pass -image, -test-images/-test-labels or -test-csv")
		os.Exit(1)
	}
}

func loadNetwork() (*nn.Network, error) {
	if *weightsFile != "" {
		weights, err := utils.LoadWeights(*weightsFile)
		if err != nil {
			return nil, err
		}
		return nn.FromWeights(weights)
	}
	return nn.Load(*modelFile)
}

func classify(net *nn.Network, path string) {
	input, err := dataset.LoadDigit(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading image: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	label, out, err := net.Predict(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running inference: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	if utils.Verbose {
		fmt.Printf("\nResult column:\n%s\n", out)
	}
	fmt.Printf("\nPredicted digit: %d (%.2fµs)\n", label, utils.DurationUS(elapsed))

	probs := nn.Softmax(out).Data()
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return probs[order[a]] > probs[order[b]] })
	fmt.Printf("Top %d:\n", min(*topK, len(order)))
	for _, idx := range order[:min(*topK, len(order))] {
		fmt.Printf("  %d: %.4f\n", idx, probs[idx])
	}
}

func evaluate(net *nn.Network) {
	var ds dataset.MNIST
	var err error
	if *testCSV != "" {
		ds.TestInputs, ds.TestTargets, err = dataset.LoadCSV(*testCSV, net.InputNodes(), net.OutputNodes())
	} else {
		ds.TestInputs, ds.TestTargets, err = dataset.LoadPair(*testImages, *testLabels)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading test set: %v\n", err)
		os.Exit(1)
	}

	stats := &utils.TimingStats{}
	start := time.Now()
	accuracy, err := net.Test(ds.TestInputs, ds.TestTargets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error testing: %v\n", err)
		os.Exit(1)
	}
	stats.EvaluationTime = time.Since(start)
	stats.TotalTime = stats.EvaluationTime
	fmt.Printf("Accuracy on %d samples: %.2f%%\n", len(ds.TestInputs), accuracy)
	utils.PrintTimingStats(stats)
}
