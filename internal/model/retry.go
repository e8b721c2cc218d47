package model

// RetryKind tags the shape of a RetryItem.
type RetryKind int

const (
	// RetryUnit reprocesses a whole unit.
	RetryUnit RetryKind = iota + 1

	// RetryAsset re-fetches a single asset.
	RetryAsset
)

func (k RetryKind) String() string {
	switch k {
	case RetryUnit:
		return "unit"
	case RetryAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// RetryItem is a failed unit or asset waiting for the second pass.
type RetryItem struct {
	Kind RetryKind

	// Unit is set for RetryUnit items.
	Unit *Unit

	// Asset is set for RetryAsset items.
	Asset *Asset

	// Reason is the error that caused the enqueue.
	Reason string
}

// UnitRetry builds a unit-level retry item.
func UnitRetry(unit *Unit, reason error) RetryItem {
	return RetryItem{Kind: RetryUnit, Unit: unit, Reason: errString(reason)}
}

// AssetRetry builds an asset-level retry item.
func AssetRetry(asset *Asset, reason error) RetryItem {
	return RetryItem{Kind: RetryAsset, Asset: asset, Reason: errString(reason)}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
