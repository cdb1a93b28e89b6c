package kafka

const (
	TopicResults string = "loadtest.results"

	DLQSuffix       string = ".dlq"
	TopicResultsDLQ string = TopicResults + DLQSuffix
)
