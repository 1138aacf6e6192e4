package client

// Interface defines the workflow server operations the rest of the tool
// consumes. This allows for easy mocking in tests.
type Interface interface {
	// Connectivity
	Ping() error

	// Projects
	ListProjects() ([]Project, error)
	CreateProject(name string) (string, error)
	DeleteProject(id string) error

	// Workflows
	ListWorkflows(projectID string) ([]Workflow, error)
	GetWorkflow(id string) (*Workflow, error)
	CreateWorkflow(w *Workflow) (string, error)
	DeleteWorkflow(id string) error
	TransferWorkflow(id, projectID string) error

	// Credentials
	GetCredential(id string) (*Credential, error)
	CreateCredential(cred *Credential) (*Credential, error)
	DeleteCredential(id string) error
}

// Ensure WorkflowClient implements the interface
var _ Interface = (*WorkflowClient)(nil)

// Ensure MockWorkflowClient implements the interface
var _ Interface = (*MockWorkflowClient)(nil)
