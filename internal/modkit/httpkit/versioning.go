package httpkit

import "net/http"

// APIV1 is the only published API version
const APIV1 = "/api/v1"

// MountAPIV1 groups every module under /api/v1 with the shared stack applied
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route(APIV1, func(api Router) {
		api.Use(mw...)
		mount(api)
	})
}
