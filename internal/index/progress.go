package index

// ProgressReporter provides callbacks for reporting include indexing progress.
// Implementations can display progress bars, log messages, or remain silent.
// Callbacks are never invoked concurrently.
type ProgressReporter interface {
	// OnDiscoveryStart is called when include file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called with the number of include files found.
	OnDiscoveryComplete(files int)

	// OnFileIndexed is called after each include file is processed.
	OnFileIndexed(file string)

	// OnComplete is called once every file has finished, including after
	// cancellation.
	OnComplete(stats *BuildStats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()            {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files int) {}
func (n *NoOpProgressReporter) OnFileIndexed(file string)     {}
func (n *NoOpProgressReporter) OnComplete(stats *BuildStats)  {}
