// sac.go - the service access control table
package main

// maxServiceNameLen is the longest service name the length-prefix byte can
// describe (the prefix stores length-1 in its low three bits).
const maxServiceNameLen = 8

func validateServiceName(name, listField string) error {
	if len(name) == 0 || len(name) > maxServiceNameLen {
		return invalidValue("%s.%s", listField, name)
	}
	return nil
}

// sacEncodedLen is the byte length of the encoded table for one name list.
func sacEncodedLen(names []string) int {
	total := 0
	for _, name := range names {
		total += 1 + len(name)
	}
	return total
}

// encodeServiceAccess encodes both name lists into one table: for every
// name, a prefix byte followed by the raw name bytes. Callable services use
// prefix len-1; hostable services set bit 7 on top of that. Order is
// preserved, accessed entries first.
func encodeServiceAccess(accessed, hosted []string) ([]byte, error) {
	table := make([]byte, 0, sacEncodedLen(accessed)+sacEncodedLen(hosted))
	for _, name := range accessed {
		if err := validateServiceName(name, "accessed_services"); err != nil {
			return nil, err
		}
		table = append(table, byte(len(name)-1))
		table = append(table, name...)
	}
	for _, name := range hosted {
		if err := validateServiceName(name, "hosted_services"); err != nil {
			return nil, err
		}
		table = append(table, 0x80|byte(len(name)-1))
		table = append(table, name...)
	}
	return table, nil
}
