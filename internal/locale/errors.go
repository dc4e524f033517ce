package locale

import "errors"

var errEmptyDefault = errors.New("locale: default locale must not be empty")
