package entity

// DependencyClassKind enumerates the closed sum of dependency classes a
// message can be assigned. Kept as a concrete enum rather than an interface
// so the classifier's table and the queue's dependsOn relation are both
// exhaustively switchable by the compiler.
type DependencyClassKind int

const (
	// GlobalConfigurationChange mutates global server state and serializes
	// with everything else.
	GlobalConfigurationChange DependencyClassKind = iota
	// WorkspaceRequest reads state depending on all open documents.
	WorkspaceRequest
	// DocumentUpdate mutates the text or lifecycle of a single document.
	DocumentUpdate
	// DocumentRequest reads information about a single document.
	DocumentRequest
	// Freestanding has no observable dependency beyond global-configuration
	// changes.
	Freestanding
)

// String implements fmt.Stringer, used in logs and test failure messages.
func (k DependencyClassKind) String() string {
	switch k {
	case GlobalConfigurationChange:
		return "GlobalConfigurationChange"
	case WorkspaceRequest:
		return "WorkspaceRequest"
	case DocumentUpdate:
		return "DocumentUpdate"
	case DocumentRequest:
		return "DocumentRequest"
	case Freestanding:
		return "Freestanding"
	default:
		return "Unknown"
	}
}

// DependencyClass is the classified dependency assigned to one inbound
// message. Document carries the build-settings key for DocumentUpdate and
// DocumentRequest classes and is the zero value otherwise.
type DependencyClass struct {
	Kind     DependencyClassKind
	Document DocumentId
}

// Global returns the GlobalConfigurationChange class.
func Global() DependencyClass {
	return DependencyClass{Kind: GlobalConfigurationChange}
}

// WorkspaceScan returns the WorkspaceRequest class.
func WorkspaceScan() DependencyClass {
	return DependencyClass{Kind: WorkspaceRequest}
}

// Update returns the DocumentUpdate(did) class.
func Update(did DocumentId) DependencyClass {
	return DependencyClass{Kind: DocumentUpdate, Document: did}
}

// Request returns the DocumentRequest(did) class.
func Request(did DocumentId) DependencyClass {
	return DependencyClass{Kind: DocumentRequest, Document: did}
}

// Standalone returns the Freestanding class.
func Standalone() DependencyClass {
	return DependencyClass{Kind: Freestanding}
}

// DependsOn implements the dependsOn(earlier, later) relation from spec §4.2.
// It reports whether a task classified as `e` (enqueued earlier) blocks the
// start of a task classified as `l` (enqueued later).
func DependsOn(e, l DependencyClass) bool {
	if e.Kind == GlobalConfigurationChange || l.Kind == GlobalConfigurationChange {
		return true
	}

	switch e.Kind {
	case DocumentUpdate:
		switch l.Kind {
		case DocumentUpdate:
			return e.Document == l.Document
		case WorkspaceRequest:
			return true
		case DocumentRequest:
			return e.Document == l.Document
		}
	case WorkspaceRequest:
		if l.Kind == DocumentUpdate {
			return true
		}
	case DocumentRequest:
		if l.Kind == DocumentUpdate {
			return e.Document == l.Document
		}
	}

	return false
}
