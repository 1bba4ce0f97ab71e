package enum

type EntityType string

const (
	EMAIL        EntityType = "EMAIL"
	SYNC_SESSION EntityType = "SYNC_SESSION"
)

func (entityType EntityType) String() string {
	return string(entityType)
}

func GetEntityType(s string) EntityType {
	return EntityType(s)
}
