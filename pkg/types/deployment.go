package types

// Deployment is a deployed, addressable model instance used for inference.
// Deployments are owned by the listing collaborator; sessions hold a
// read-only reference by ID.
type Deployment struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	DisplayName   string  `json:"displayName"`
	ModelID       string  `json:"modelID"`
	Provider      string  `json:"provider"`
	ContextLength int     `json:"contextLength"`
	InputCost     float64 `json:"inputCost"`  // per 1M tokens
	OutputCost    float64 `json:"outputCost"` // per 1M tokens
	APIKey        string  `json:"apiKey,omitempty"`
}

// DeploymentPage is one page of the deployment listing response.
type DeploymentPage struct {
	Deployments []Deployment `json:"deployments"`
	Page        int          `json:"page"`
	TotalPages  int          `json:"totalPages"`
	Total       int          `json:"total"`
}
