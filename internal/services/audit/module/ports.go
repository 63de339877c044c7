package module

import (
	sdomain "litscreen/internal/services/api/screening/domain"
	dom "litscreen/internal/services/audit/domain"
)

// Ports holds the ports exposed by the audit module
type Ports struct {
	Worker dom.WorkerPort
	Nudge  dom.NudgePort
	Hook   sdomain.FactHook
}
