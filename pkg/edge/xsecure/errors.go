package xsecure

import "fmt"

// OriginError 白名单中的来源无法解析
type OriginError struct {
	Origin string
}

func (e *OriginError) Error() string {
	return fmt.Sprintf("xsecure: invalid origin %q, want scheme://host[:port]", e.Origin)
}
