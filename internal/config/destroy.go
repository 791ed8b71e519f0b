package config

func destroy() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	return fs.Remove(configPath)
}
