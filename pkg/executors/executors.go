package executors

import (
	"pkg.jsn.cam/sentireduce/pkg/executors/sentiment"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
)

// Factory builds a worker bound to a job's configuration. Workers that
// need no configuration ignore it.
type Factory func(cfg sentireduce.JobConfig) (sentireduce.Worker, error)

var Executors = map[string]Factory{
	"sentiment": sentiment.New,
}

func IsValidExecutor(name string) bool {
	_, exists := Executors[name]
	return exists
}

func GetExecutor(name string, cfg sentireduce.JobConfig) (sentireduce.Worker, error) {
	factory, exists := Executors[name]
	if !exists {
		return nil, sentireduce.ErrInvalidExecutor
	}
	return factory(cfg)
}

func ListExecutors() []string {
	var names []string
	for name := range Executors {
		names = append(names, name)
	}
	return names
}

func GetDescription(name string) (string, error) {
	factory, exists := Executors[name]
	if !exists {
		return "", sentireduce.ErrInvalidExecutor
	}
	worker, err := factory(sentireduce.JobConfig{})
	if err != nil {
		return "", err
	}
	return worker.Description(), nil
}
