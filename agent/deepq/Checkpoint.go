package deepq

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/AleBrownArnold/reinforcement-learning-study/agent/policy"
	"github.com/AleBrownArnold/reinforcement-learning-study/network"
)

// Checkpoint is a serializable bundle of everything needed to resume
// a learning run: the parameters of both networks, the exploration
// schedule state, and the progress counters. Replay buffer contents
// are deliberately not part of a checkpoint; a resumed run refills its
// buffer during a fresh warm-up phase.
type Checkpoint struct {
	Online      network.Snapshot
	Target      network.Snapshot
	Exploration policy.Exploration
	Counters    Counters
}

// Checkpoint captures the agent's current learning state
func (d *DeepQ) Checkpoint() (Checkpoint, error) {
	online, err := d.online.Snapshot()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: could not snapshot "+
			"online network: %v", err)
	}
	target, err := d.target.Snapshot()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: could not snapshot "+
			"target network: %v", err)
	}

	return Checkpoint{
		Online:      online,
		Target:      target,
		Exploration: d.exploration,
		Counters:    d.counters,
	}, nil
}

// Restore overwrites the agent's learning state with a checkpoint
// previously produced by an agent of the same configuration.
func (d *DeepQ) Restore(c Checkpoint) error {
	if err := d.online.Restore(c.Online); err != nil {
		return fmt.Errorf("restore: could not restore online network: %v",
			err)
	}
	if err := d.target.Restore(c.Target); err != nil {
		return fmt.Errorf("restore: could not restore target network: %v",
			err)
	}

	d.exploration = c.Exploration
	d.counters = c.Counters
	return nil
}

// Save writes the agent's current checkpoint to a file
func (d *DeepQ) Save(filename string) error {
	checkpoint, err := d.Checkpoint()
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(checkpoint); err != nil {
		return fmt.Errorf("save: could not encode checkpoint: %v", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint previously written by Save
func LoadCheckpoint(filename string) (Checkpoint, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("loadCheckpoint: could not open "+
			"file: %v", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := gob.NewDecoder(file).Decode(&checkpoint); err != nil {
		return Checkpoint{}, fmt.Errorf("loadCheckpoint: could not decode "+
			"checkpoint: %v", err)
	}
	return checkpoint, nil
}
