package appointment

// CanTransition reports whether an appointment may move from one status to
// another. Only scheduled appointments move; completed and canceled are final.
func CanTransition(from, to Status) bool {
	if from != StatusScheduled {
		return false
	}
	return to == StatusCompleted || to == StatusCanceled
}
