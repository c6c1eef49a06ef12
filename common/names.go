package common

import "regexp"

var queueNameRegexp = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,62}$`)

// ValidateQueueName checks the name against the allow-list used before any queue name reaches SQL.
func ValidateQueueName(queueName string) error {
	if !queueNameRegexp.MatchString(queueName) || queueName == RegistryTable {
		return ErrInvalidQueueName
	}
	return nil
}
