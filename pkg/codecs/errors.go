package codecs

import "errors"

// ErrMaterialCount is returned when a peer sends a material slot count
// outside [0, MaxMaterials].
var ErrMaterialCount = errors.New("codecs: material count out of range")
