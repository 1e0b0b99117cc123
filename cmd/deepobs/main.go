// Command deepobs trains a benchmark problem and reports training and
// test metrics after every epoch.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"math/rand"
	"os"

	"github.com/FelixBenning/DeepOBS/autodiff"
	"github.com/FelixBenning/DeepOBS/backend/cpu"
	"github.com/FelixBenning/DeepOBS/datasets/cifar100"
	"github.com/FelixBenning/DeepOBS/optim"
	"github.com/FelixBenning/DeepOBS/testproblems"
)

type backend = *autodiff.Backend[*cpu.CPUBackend]

func main() {
	problem := flag.String("problem", "cifar100_wrn164", "Test problem: cifar100_wrn164 or cifar100_wrn404")
	optName := flag.String("optimizer", "sgd", "Optimizer: sgd or adam")
	lr := flag.Float64("lr", 0.1, "Learning rate")
	momentum := flag.Float64("momentum", 0.9, "Momentum for SGD")
	batchSize := flag.Int("batch", 128, "Batch size")
	epochs := flag.Int("epochs", 1, "Number of training epochs")
	weightDecay := flag.Float64("wd", 5e-4, "Weight decay factor")
	bnDecay := flag.Float64("bn-decay", 0.9, "Batch norm moving average decay")
	dataDir := flag.String("data", "./data/cifar-100-binary", "Directory with train.bin and test.bin")
	synthetic := flag.Bool("synthetic", false, "Use a small synthetic dataset (no data files needed)")
	seed := flag.Int64("seed", 42, "Seed for initialization, shuffling, and augmentation")
	flag.Parse()

	b := autodiff.New(cpu.New())

	var data *cifar100.Data
	if *synthetic {
		fmt.Println("Using synthetic data")
		data = cifar100.Synthetic(512, 256, rand.New(rand.NewSource(*seed)))
	} else {
		var err error
		data, err = cifar100.Load(*dataDir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Println("CIFAR-100 binary files not found.")
				fmt.Println("Download and extract cifar-100-binary.tar.gz from")
				fmt.Println("https://www.cs.toronto.edu/~kriz/cifar.html into the data directory,")
				fmt.Println("or run with -synthetic.")
				os.Exit(1)
			}
			log.Fatalf("Failed to load CIFAR-100: %v", err)
		}
	}

	cfg := testproblems.Config{
		BatchSize:   *batchSize,
		WeightDecay: float32(*weightDecay),
		BNDecay:     float32(*bnDecay),
		Seed:        *seed,
	}

	var p *testproblems.Cifar100WRN[backend]
	var err error
	switch *problem {
	case "cifar100_wrn164":
		p, err = testproblems.NewCifar100WRN164(data, cfg, b)
	case "cifar100_wrn404":
		p, err = testproblems.NewCifar100WRN404(data, cfg, b)
	default:
		log.Fatalf("Unknown problem %q", *problem)
	}
	if err != nil {
		log.Fatalf("Failed to build %s: %v", *problem, err)
	}

	var opt optim.Optimizer[backend]
	switch *optName {
	case "sgd":
		opt = optim.NewSGD(p.Parameters(), optim.SGDConfig{LR: float32(*lr), Momentum: float32(*momentum)})
	case "adam":
		opt = optim.NewAdam(p.Parameters(), optim.AdamConfig{LR: float32(*lr)})
	default:
		log.Fatalf("Unknown optimizer %q", *optName)
	}

	numParams := 0
	for _, param := range p.Parameters() {
		numParams += param.NumElements()
	}
	fmt.Printf("%s: %d parameter tensors, %d weights\n", *problem, len(p.Parameters()), numParams)
	fmt.Printf("Optimizer: %s (lr=%g), batch size %d, %d epochs\n", *optName, *lr, *batchSize, *epochs)

	for epoch := 1; epoch <= *epochs; epoch++ {
		trainLoss, trainAcc := trainEpoch(p, opt, b)
		fmt.Printf("epoch %3d  train         loss %.4f  acc %.4f\n", epoch, trainLoss, trainAcc)

		evalLoss, evalAcc := evaluate(p, cifar100.PhaseTrainEval)
		fmt.Printf("epoch %3d  train_eval    loss %.4f  acc %.4f\n", epoch, evalLoss, evalAcc)

		testLoss, testAcc := evaluate(p, cifar100.PhaseTest)
		fmt.Printf("epoch %3d  test          loss %.4f  acc %.4f\n", epoch, testLoss, testAcc)
	}
}

// trainEpoch runs one pass over the shuffled training data, updating
// the parameters after every batch. Returns the running mean loss and
// accuracy over the epoch.
func trainEpoch(p *testproblems.Cifar100WRN[backend], opt optim.Optimizer[backend], b backend) (float64, float64) {
	p.SetPhase(cifar100.PhaseTrain)
	b.Tape().StartRecording()
	defer b.Tape().StopRecording()

	var lossSum, accSum float64
	batches := 0

	it := p.Iterator()
	for {
		batch, ok := it.Next()
		if !ok {
			break
		}
		b.Tape().Clear()

		logits := p.Forward(batch.Images)
		losses := p.Losses(logits, batch.Labels)
		loss := losses.Mean()
		if reg := p.RegularizationLoss(); reg != nil {
			loss = loss.Add(reg)
		}

		grads := autodiff.Backward(loss, b)
		opt.Step(grads)

		lossSum += float64(loss.Item())
		accSum += float64(p.Accuracy(logits, batch.Labels))
		batches++
	}
	b.Tape().Clear()

	if batches == 0 {
		return 0, 0
	}
	return lossSum / float64(batches), accSum / float64(batches)
}

// evaluate runs one pass over the given phase without updating any
// parameters or moving statistics. Returns the example-weighted mean
// loss and accuracy.
func evaluate(p *testproblems.Cifar100WRN[backend], phase cifar100.Phase) (float64, float64) {
	p.SetPhase(phase)

	var lossSum, accSum float64
	examples := 0

	it := p.Iterator()
	for {
		batch, ok := it.Next()
		if !ok {
			break
		}
		n := batch.Images.Shape()[0]

		logits := p.Forward(batch.Images)
		losses := p.Losses(logits, batch.Labels)
		for _, l := range losses.Data() {
			lossSum += float64(l)
		}
		accSum += float64(p.Accuracy(logits, batch.Labels)) * float64(n)
		examples += n
	}

	if examples == 0 {
		return 0, 0
	}
	return lossSum / float64(examples), accSum / float64(examples)
}
