// Package forgetting implements the decay engine of decaying dictionaries.
//
// A decaying bigram stores an encoded level in [0, MaxEncoded] instead of a raw
// probability. Every observation raises the level by Step, every maintenance
// sweep lowers it by Step, and entries whose level falls below MinValid are
// forgotten (tombstoned) by the sweep:
//
//	c := forgetting.New(forgetting.DefaultConfig())
//
//	p := c.Merge(model.NotAProbability, 80) // MinValid
//	p = c.Merge(p, 80)                      // MinValid + Step
//	p = c.Decay(p)                          // MinValid
//	c.IsValid(p)                            // true
//
// The merge ignores the magnitude of the observed value; only whether one was
// given matters.
package forgetting
