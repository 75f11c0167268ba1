package org

import "errors"

var (
	ErrNotFound        = errors.New("org node not found")
	ErrDepartmentInUse = errors.New("department still has employees or sub-units")
	ErrInvalidParent   = errors.New("invalid parent")
	ErrMissingTenant   = errors.New("tenant id required")
)
