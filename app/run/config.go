package run

type Config struct {
	// Tasks are the names of the tasks to run
	Tasks []string
}
