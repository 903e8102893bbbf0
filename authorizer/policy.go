package authorizer

// Policy document constants understood by API Gateway
const (
	PolicyVersion = "2012-10-17"
	InvokeAction  = "execute-api:Invoke"

	EffectAllow = "Allow"
	EffectDeny  = "Deny"

	// WildcardResource covers every method of the protected API
	WildcardResource = "*"
)

// Decision is the response returned to API Gateway by a custom authorizer
type Decision struct {
	PrincipalID    string         `json:"principalId"`
	PolicyDocument PolicyDocument `json:"policyDocument"`
}

// PolicyDocument is an IAM policy with a single statement
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement grants or denies invocation of a resource
type Statement struct {
	Action   string `json:"Action"`
	Effect   string `json:"Effect"`
	Resource string `json:"Resource"`
}

// Effect returns the effect of the first statement
func (d Decision) Effect() string {
	if len(d.PolicyDocument.Statement) == 0 {
		return ""
	}
	return d.PolicyDocument.Statement[0].Effect
}

// Allowed reports whether the decision allows invocation
func (d Decision) Allowed() bool {
	return d.Effect() == EffectAllow
}

func newDecision(principalID, effect, resource string) Decision {
	return Decision{
		PrincipalID: principalID,
		PolicyDocument: PolicyDocument{
			Version: PolicyVersion,
			Statement: []Statement{
				{
					Action:   InvokeAction,
					Effect:   effect,
					Resource: resource,
				},
			},
		},
	}
}
