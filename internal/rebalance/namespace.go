package rebalance

import "strings"

const namespacePathSeparatorConstant = "/"

// NamespaceResolver turns project URLs into namespace paths relative to a host.
type NamespaceResolver struct {
	host string
}

// NewNamespaceResolver builds a resolver for the host base URL.
func NewNamespaceResolver(host string) (NamespaceResolver, error) {
	trimmedHost := strings.TrimRight(strings.TrimSpace(host), namespacePathSeparatorConstant)
	if len(trimmedHost) == 0 {
		return NamespaceResolver{}, InvalidInputError{FieldName: hostFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return NamespaceResolver{host: trimmedHost}, nil
}

// Resolve strips the host from projectURL and trims surrounding slashes,
// yielding a path such as "group/subgroup/project".
func (resolver NamespaceResolver) Resolve(projectURL string) (string, error) {
	remainder, hasHostPrefix := strings.CutPrefix(projectURL, resolver.host)
	if !hasHostPrefix || (len(remainder) > 0 && !strings.HasPrefix(remainder, namespacePathSeparatorConstant)) {
		return "", NamespaceResolutionError{ProjectURL: projectURL, Host: resolver.host}
	}
	namespacePath := strings.Trim(remainder, namespacePathSeparatorConstant)
	if len(namespacePath) == 0 {
		return "", NamespaceResolutionError{ProjectURL: projectURL, Host: resolver.host}
	}
	return namespacePath, nil
}
