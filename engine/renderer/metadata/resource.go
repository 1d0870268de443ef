package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Not an engine resource. */
	ResourceTypeNone ResourceType = iota
	/** @brief Image resource type, decoded into a Texture. */
	ResourceTypeImage
	/** @brief Engine configuration. */
	ResourceTypeConfig
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeImage:
		return "image"
	case ResourceTypeConfig:
		return "config"
	default:
		return "none"
	}
}
