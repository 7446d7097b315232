package config

type WorkerKeyStruct struct {
	GenerateFeedbackQueue string
}

var WorkerKey = &WorkerKeyStruct{
	GenerateFeedbackQueue: "generate_feedback_queue",
}
