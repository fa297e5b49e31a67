package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"gorgonia.org/tensor"
)

// Files written by SaveBatch. The mask is stored as 0/1 float64 so any npy
// reader can load it.
const (
	pointsFile  = "x.npy"
	targetsFile = "y.npy"
	maskFile    = "mask.npy"
)

// SaveBatch writes b as three .npy files into dir.
func SaveBatch(dir string, b *Batch) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	bools := b.Mask.Bools()
	flags := make([]float64, len(bools))
	for i, v := range bools {
		if v {
			flags[i] = 1
		}
	}
	mask := tensor.New(tensor.WithShape(b.Mask.Shape()...), tensor.WithBacking(flags))

	for name, t := range map[string]*tensor.Dense{pointsFile: b.X, targetsFile: b.Y, maskFile: mask} {
		if err := writeNpy(filepath.Join(dir, name), t); err != nil {
			return err
		}
	}
	return nil
}

func writeNpy(path string, t *tensor.Dense) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := t.WriteNpy(file); err != nil {
		return fmt.Errorf("dataset: writing %s: %w", path, err)
	}
	return file.Close()
}

func readNpy(path string) (*tensor.Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	t := new(tensor.Dense)
	if err := t.ReadNpy(file); err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
	}
	return t, nil
}

// LoadBatch reads a batch written by SaveBatch.
func LoadBatch(dir string) (*Batch, error) {
	x, err := readNpy(filepath.Join(dir, pointsFile))
	if err != nil {
		return nil, err
	}
	y, err := readNpy(filepath.Join(dir, targetsFile))
	if err != nil {
		return nil, err
	}
	flags, err := readNpy(filepath.Join(dir, maskFile))
	if err != nil {
		return nil, err
	}
	if x.Dims() != 2 || y.Dims() != 1 || flags.Dims() != 2 {
		return nil, fmt.Errorf("dataset: unexpected ranks %d, %d, %d", x.Dims(), y.Dims(), flags.Dims())
	}
	n, dim := x.Shape()[0], x.Shape()[1]
	if y.Shape()[0] != n || flags.Shape()[0] != n || flags.Shape()[1] != MaskWidth(dim-1) {
		return nil, fmt.Errorf("dataset: shapes %v, %v, %v do not agree", x.Shape(), y.Shape(), flags.Shape())
	}
	values := flags.Float64s()
	bools := make([]bool, len(values))
	for i, v := range values {
		bools[i] = v != 0
	}
	return &Batch{
		X:    x,
		Y:    y,
		Mask: tensor.New(tensor.WithShape(flags.Shape()...), tensor.WithBacking(bools)),
	}, nil
}
