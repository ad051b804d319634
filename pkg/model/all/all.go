// Package all imports all probability models for side-effect registration.
// Usage: _ "github.com/serval-uni-lu/flakime/pkg/model/all"
package all

import (
	_ "github.com/serval-uni-lu/flakime/pkg/model"
	_ "github.com/serval-uni-lu/flakime/pkg/model/vocabulary"
)
