package stack

import (
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/klothoplatform/constructs/pkg/token"
)

// ArnComponents are the parts of an ARN. Empty Region / Account default to the stack's;
// set NoRegion / NoAccount for global services such as IAM.
type ArnComponents struct {
	Service      string
	Resource     string
	ResourceName token.Str
	// Separator between Resource and ResourceName, "/" when empty.
	Separator string
	Region    token.Str
	Account   token.Str
	NoRegion  bool
	NoAccount bool
}

// FormatArn builds an ARN in the stack's partition. The result is a literal when every part is.
func (s *Stack) FormatArn(c ArnComponents) token.Str {
	region := c.Region
	if region.IsEmpty() && !c.NoRegion {
		region = s.Region()
	}
	account := c.Account
	if account.IsEmpty() && !c.NoAccount {
		account = s.Account()
	}
	sep := c.Separator
	if sep == "" {
		sep = "/"
	}
	resource := token.String(c.Resource)
	if !c.ResourceName.IsEmpty() {
		resource = token.Concat(token.String(c.Resource), token.String(sep), c.ResourceName)
	}
	partition := s.Partition()

	lits := make([]string, 0, 4)
	for _, part := range []token.Str{partition, region, account, resource} {
		lit, ok := part.Literal()
		if !ok {
			break
		}
		lits = append(lits, lit)
	}
	if len(lits) == 4 {
		return token.String(arn.ARN{
			Partition: lits[0],
			Service:   c.Service,
			Region:    lits[1],
			AccountID: lits[2],
			Resource:  lits[3],
		}.String())
	}
	return token.Concat(
		token.String("arn:"), partition,
		token.String(":"+c.Service+":"), region,
		token.String(":"), account,
		token.String(":"), resource,
	)
}
