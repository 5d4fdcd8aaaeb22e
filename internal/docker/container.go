// container.go lists the containers that make up the running stack.
// Compose stamps every container it creates with the
// com.docker.compose.project label, so a server-side label filter finds
// the stack without knowing container names.
package docker

import (
	"context"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/memmachine/memmachine-stack/internal/model"
)

// Compose labels set on every container a compose project creates.
const (
	LabelComposeProject = "com.docker.compose.project"
	LabelComposeService = "com.docker.compose.service"
)

// ListProjectContainers returns every container (running or stopped) that
// belongs to the compose project, sorted by service name.
func (c *Client) ListProjectContainers(ctx context.Context, project string) ([]model.ContainerInfo, error) {
	containers, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelComposeProject+"="+project)),
	})
	if err != nil {
		return nil, model.PreconditionError("failed to list Docker containers", err)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, s := range containers {
		result = append(result, summaryToInfo(s))
	}
	SortByService(result)
	return result, nil
}

// summaryToInfo maps a Docker API container summary to ContainerInfo.
// Docker reports names with a leading "/", which is stripped.
func summaryToInfo(s container.Summary) model.ContainerInfo {
	name := ""
	if len(s.Names) > 0 {
		name = strings.TrimPrefix(s.Names[0], "/")
	}

	return model.ContainerInfo{
		ContainerID:   s.ID,
		ContainerName: name,
		ServiceName:   s.Labels[LabelComposeService],
		Image:         s.Image,
		State:         model.ParseContainerState(string(s.State)),
		Status:        s.Status,
		Labels:        s.Labels,
	}
}

// SortByService orders containers by service name, then container name.
func SortByService(containers []model.ContainerInfo) {
	sort.Slice(containers, func(i, j int) bool {
		if containers[i].ServiceName != containers[j].ServiceName {
			return containers[i].ServiceName < containers[j].ServiceName
		}
		return containers[i].ContainerName < containers[j].ContainerName
	})
}

// CountRunning returns how many containers are in the running state.
func CountRunning(containers []model.ContainerInfo) int {
	n := 0
	for _, c := range containers {
		if c.State.IsRunning() {
			n++
		}
	}
	return n
}
