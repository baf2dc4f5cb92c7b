package command

import "strconv"

func parseThreadArg(s string) (int, error) {
	return strconv.Atoi(s)
}
