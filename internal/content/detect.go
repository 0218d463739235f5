package content

// IsChanged reports whether candidate differs from the previously accepted
// artifact. A missing previous artifact always counts as a change.
func IsChanged(candidate Artifact, previous *Artifact) bool {
	if previous == nil {
		return true
	}
	return candidate.Fingerprint() != previous.Fingerprint()
}
