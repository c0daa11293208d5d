package models

// Observer receives progress observations from the pipeline stages.
// Implementations must be safe to call from the goroutine running the stage.
type Observer interface {
	OnProgress(obs Observation)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(obs Observation)

func (f ObserverFunc) OnProgress(obs Observation) { f(obs) }

// NopObserver discards observations
type NopObserver struct{}

func (NopObserver) OnProgress(Observation) {}
