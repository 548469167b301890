//go:build headless

package main

type EbitenOutput struct {
	core *Core
}

func NewEbitenOutput(core *Core) *EbitenOutput {
	return &EbitenOutput{core: core}
}

func (eo *EbitenOutput) Start() {}

func (eo *EbitenOutput) Update() error {
	eo.core.RunUntil(eo.core.Ticks()+ticksPerFrame, StopVSync)
	return nil
}

// Run drives frames one at a time since there is no windowing system to
// own the loop; frames <= 0 runs until Update returns an error.
func (eo *EbitenOutput) Run(frames int) error {
	for i := 0; frames <= 0 || i < frames; i++ {
		if err := eo.Update(); err != nil {
			return err
		}
	}
	return nil
}
