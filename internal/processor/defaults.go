package processor

import "repogator.app/relay/internal/model"

// DefaultRegistry maps every routed event kind to its processor.
func DefaultRegistry(newClient ClientFactory) *Registry {
	if newClient == nil {
		newClient = DefaultClientFactory
	}
	return NewRegistry(map[model.EventKind]Processor{
		model.EventKindIssueOpened:       NewRequirementsProcessor(newClient),
		model.EventKindPullRequestOpened: NewReviewProcessor(newClient),
		model.EventKindPullRequestMerged: NewDocsProcessor(newClient),
	})
}
