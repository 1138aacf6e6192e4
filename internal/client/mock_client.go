package client

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// MockWorkflowClient is a mock implementation for testing.
type MockWorkflowClient struct {
	mu sync.RWMutex

	// Storage
	Workflows   map[string]*Workflow
	Credentials map[string]*Credential
	Projects    map[string]*Project

	// Error simulation
	PingError       error
	ListError       error
	GetError        error
	CreateError     error
	DeleteError     error
	TransferError   error
	SupportProjects bool

	// FailCreateAfter makes workflow creation fail once the given number of
	// workflows have been created. Negative disables the behavior.
	FailCreateAfter int

	// Call tracking
	Calls []MockCall
}

// MockCall tracks method calls for verification.
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockClient creates a new mock client with empty stores.
func NewMockClient() *MockWorkflowClient {
	return &MockWorkflowClient{
		Workflows:       make(map[string]*Workflow),
		Credentials:     make(map[string]*Credential),
		Projects:        make(map[string]*Project),
		SupportProjects: true,
		FailCreateAfter: -1,
		Calls:           []MockCall{},
	}
}

// RecordCall records a method call.
func (m *MockWorkflowClient) RecordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCallCount returns the number of calls to a specific method.
func (m *MockWorkflowClient) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, call := range m.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// AddWorkflow seeds a workflow into the mock server.
func (m *MockWorkflowClient) AddWorkflow(w *Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	m.Workflows[w.ID] = w
}

// AddCredential seeds a credential into the mock server.
func (m *MockWorkflowClient) AddCredential(cred *Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	m.Credentials[cred.ID] = cred
}

// AddProject seeds a project into the mock server.
func (m *MockWorkflowClient) AddProject(p *Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.Projects[p.ID] = p
}

func notFound() error {
	return &APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

// --- Mock implementations of the Interface methods ---

func (m *MockWorkflowClient) Ping() error {
	m.RecordCall("Ping")
	return m.PingError
}

func (m *MockWorkflowClient) ListProjects() ([]Project, error) {
	m.RecordCall("ListProjects")
	if m.ListError != nil {
		return nil, m.ListError
	}
	if !m.SupportProjects {
		return nil, &APIError{StatusCode: http.StatusForbidden, Message: "projects not supported"}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	projects := make([]Project, 0, len(m.Projects))
	for _, p := range m.Projects {
		projects = append(projects, *p)
	}
	return projects, nil
}

func (m *MockWorkflowClient) CreateProject(name string) (string, error) {
	m.RecordCall("CreateProject", name)
	if m.CreateError != nil {
		return "", m.CreateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.Projects[id] = &Project{ID: id, Name: name}
	return id, nil
}

func (m *MockWorkflowClient) DeleteProject(id string) error {
	m.RecordCall("DeleteProject", id)
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Projects[id]; !ok {
		return notFound()
	}
	delete(m.Projects, id)
	return nil
}

func (m *MockWorkflowClient) ListWorkflows(projectID string) ([]Workflow, error) {
	m.RecordCall("ListWorkflows", projectID)
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	workflows := make([]Workflow, 0, len(m.Workflows))
	for _, w := range m.Workflows {
		workflows = append(workflows, *w)
	}
	return workflows, nil
}

func (m *MockWorkflowClient) GetWorkflow(id string) (*Workflow, error) {
	m.RecordCall("GetWorkflow", id)
	if m.GetError != nil {
		return nil, m.GetError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.Workflows[id]
	if !ok {
		return nil, notFound()
	}
	copied := *w
	return &copied, nil
}

func (m *MockWorkflowClient) CreateWorkflow(w *Workflow) (string, error) {
	m.RecordCall("CreateWorkflow", w.Name)
	if m.CreateError != nil {
		return "", m.CreateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateAfter >= 0 && len(m.Workflows) >= m.FailCreateAfter {
		return "", &APIError{StatusCode: http.StatusBadRequest, Message: "invalid payload"}
	}

	id := uuid.NewString()
	stored := *w
	stored.ID = id
	m.Workflows[id] = &stored
	return id, nil
}

func (m *MockWorkflowClient) DeleteWorkflow(id string) error {
	m.RecordCall("DeleteWorkflow", id)
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Workflows[id]; !ok {
		return notFound()
	}
	delete(m.Workflows, id)
	return nil
}

func (m *MockWorkflowClient) TransferWorkflow(id, projectID string) error {
	m.RecordCall("TransferWorkflow", id, projectID)
	if m.TransferError != nil {
		return m.TransferError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.Workflows[id]; !ok {
		return notFound()
	}
	if _, ok := m.Projects[projectID]; !ok && projectID != "" {
		return notFound()
	}
	return nil
}

func (m *MockWorkflowClient) GetCredential(id string) (*Credential, error) {
	m.RecordCall("GetCredential", id)
	if m.GetError != nil {
		return nil, m.GetError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.Credentials[id]
	if !ok {
		return nil, notFound()
	}
	copied := *cred
	copied.Data = nil
	return &copied, nil
}

func (m *MockWorkflowClient) CreateCredential(cred *Credential) (*Credential, error) {
	m.RecordCall("CreateCredential", cred.Name)
	if m.CreateError != nil {
		return nil, m.CreateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	created := *cred
	created.ID = uuid.NewString()
	m.Credentials[created.ID] = &created
	return &created, nil
}

func (m *MockWorkflowClient) DeleteCredential(id string) error {
	m.RecordCall("DeleteCredential", id)
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Credentials[id]; !ok {
		return notFound()
	}
	delete(m.Credentials, id)
	return nil
}
