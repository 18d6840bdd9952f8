package healthapi

import "strconv"

func parsePositiveInt(s string) (int, error) {
	return strconv.Atoi(s)
}
