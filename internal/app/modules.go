package app

import (
	"github.com/ccmdi/blockkit/internal/handlers"
	clockmod "github.com/ccmdi/blockkit/modules/clock"
	"github.com/ccmdi/blockkit/modules/props"
	"github.com/ccmdi/blockkit/modules/status"
)

// coreModules is the default set of widget modules an App registers when
// the caller does not supply its own.
var coreModules = []handlers.Module{
	&clockmod.Module{},
	&props.Module{},
	&status.Module{},
}
